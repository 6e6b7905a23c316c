package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	PageSize   int
	MaxPages   int
	MaxAgeDays int
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep [kind...]",
		Short: "Re-sync stubs and stale records",
		Long: `Re-sync records that are stubs or whose provider modified date is
older than the staleness age. Kinds are swept in dependency order; with no
kind given every kind is swept.

Flags override the sweep settings of the config file; zero keeps them.

Example:
  comicsync sweep series
  comicsync sweep --page-size 20 --max-pages 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "ids per page")
	cmd.Flags().IntVar(&opts.MaxPages, "max-pages", 0, "pages per kind")
	cmd.Flags().IntVar(&opts.MaxAgeDays, "max-age-days", 0, "records older than this many days are stale")

	return cmd
}

func runSweep(cmd *cobra.Command, opts *SweepOptions, args []string) error {
	kinds := catalog.Kinds
	if len(args) > 0 {
		kinds = nil
		for _, a := range args {
			k, err := catalog.ParseKind(a)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}
			kinds = append(kinds, k)
		}
	}

	rt, err := openRuntime(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	maxAge := time.Duration(opts.MaxAgeDays) * 24 * time.Hour
	sy, err := rt.syncer(engine.WithSweep(opts.PageSize, opts.MaxPages, maxAge))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var reports []*engine.Report
	for _, kind := range kinds {
		if ctx.Err() != nil {
			break
		}
		report, err := sy.SweepStale(ctx, kind)
		if err != nil {
			_ = rt.out.Error(ErrCodeStore, "sweep failed", err.Error())
			return WrapExitError(ExitCommandError, "sweep failed", err)
		}
		reports = append(reports, report)
	}
	return rt.emit(reports...)
}
