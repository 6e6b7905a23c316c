package cli

import (
	"github.com/spf13/cobra"

	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
)

// AcquireOptions holds flags for the acquire command.
type AcquireOptions struct {
	*RootOptions
	Decision string // overrides acquire.decision
	Purchase string // overrides acquire.purchase_format; "none" disables
}

// NewAcquireCommand creates the acquire command.
func NewAcquireCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AcquireOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Commit every queued scanned code",
		Long: `Drain the acquisition queue. Each code is looked up, resolved and
committed before the next one starts. Committed codes leave the queue;
skipped and failed codes stay for a later run.

The same code scanned on two dates is committed once; --decision picks
which date is kept (first or latest). With --purchase every committed
issue is recorded as owned in that format.

Example:
  comicsync acquire
  comicsync acquire --decision latest --purchase physical`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAcquire(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Decision, "decision", "", "scan date kept on conflict (first|latest)")
	cmd.Flags().StringVar(&opts.Purchase, "purchase", "", "record issues as owned (physical|digital|none)")

	return cmd
}

func runAcquire(cmd *cobra.Command, opts *AcquireOptions) error {
	rt, err := openRuntime(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	pipeline, err := newPipeline(rt, opts)
	if err != nil {
		_ = rt.out.Error(ErrCodeArgument, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid acquire options", err)
	}

	sy, err := rt.syncer()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	report, err := sy.Acquire(ctx, rt.store, pipeline)
	if err != nil {
		_ = rt.out.Error(ErrCodeStore, "failed to read queue", err.Error())
		return WrapExitError(ExitCommandError, "failed to read queue", err)
	}
	for _, c := range pipeline.Conflicts() {
		rt.out.VerboseLog("conflict %s: kept %s over %s", c.Code, c.Chosen, otherDate(c))
	}
	return rt.emit(report)
}

func newPipeline(rt *runtime, opts *AcquireOptions) (*engine.Pipeline, error) {
	decision := rt.cfg.Acquire.Decision
	if opts.Decision != "" {
		decision = opts.Decision
	}
	purchase := rt.cfg.Acquire.PurchaseFormat
	if opts.Purchase != "" {
		purchase = opts.Purchase
	}

	return engine.PipelineFor(decision, purchase)
}

func otherDate(c engine.Conflict) string {
	if c.Chosen == c.Kept {
		return c.Incoming
	}
	return c.Kept
}
