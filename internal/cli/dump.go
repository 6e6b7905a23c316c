package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// DumpResult is a rendered store dump.
type DumpResult struct {
	Dump string `json:"dump"`
}

func (d DumpResult) String() string {
	if d.Dump == "" {
		return "(empty)"
	}
	return strings.TrimSuffix(d.Dump, "\n")
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [table...]",
		Short: "Print stored rows",
		Long: `Print the rows of the named tables (all tables when none are given),
one line per row with NULL columns left out. Empty tables are skipped.

Example:
  comicsync dump Issues Issues_has_Creators`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			var b strings.Builder
			if err := rt.store.Dump(cmd.Context(), &b, args...); err != nil {
				_ = rt.out.Error(ErrCodeArgument, "failed to dump", err.Error())
				return WrapExitError(ExitCommandError, "failed to dump", err)
			}
			return rt.out.Success(DumpResult{Dump: b.String()})
		},
	}
}
