package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
)

// NewSyncCommand creates the sync command group.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Look up records and reconcile them into the catalog",
		Long: `Look up records at the provider and commit them, together with stubs
for everything they reference and the relationships between them.

Every item ends committed, skipped (the provider had nothing usable) or
failed. The command exits 1 when any item failed.`,
	}

	cmd.AddCommand(newSyncCodeCommand(rootOpts))
	cmd.AddCommand(newSyncIDCommand(rootOpts))
	cmd.AddCommand(newSyncRelatedCommand(rootOpts))
	cmd.AddCommand(newSyncPurchasedCommand(rootOpts))

	return cmd
}

func newSyncCodeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "code <code>",
		Short: "Sync the issue with a scanned code",
		Long: `Sync the issue whose catalog code matches. A full scanned string
(PREFIX-CODE) is accepted; the prefix is ignored.

Example:
  comicsync sync code 75960608936900111
  comicsync sync code 00111-75960608936900111`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			if strings.Contains(code, "-") {
				sc, err := catalog.ParseScannedCode(code)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid code", err)
				}
				code = sc.Code
			}
			return withSyncer(cmd, opts, func(rt *runtime, sy *engine.Syncer) error {
				ctx, cancel := signalContext(cmd)
				defer cancel()
				return rt.emit(sy.SyncByCode(ctx, code))
			})
		},
	}
}

func newSyncIDCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "id <kind> <id>...",
		Short: "Sync records by kind and id",
		Long: `Sync one or more records of a kind. Kinds: issue, series, event, story,
character, creator (provider endpoint and table names are accepted too).
A stub row becomes complete; a complete row is merged with the fresh record.

Example:
  comicsync sync id series 100
  comicsync sync id creators 200 201`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := catalog.ParseKind(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			return withSyncer(cmd, opts, func(rt *runtime, sy *engine.Syncer) error {
				ctx, cancel := signalContext(cmd)
				defer cancel()
				return rt.emit(sy.SyncIDs(ctx, "sync-id", kind, ids))
			})
		},
	}
}

func newSyncRelatedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "related <issue-id> <kind>",
		Short: "Sync every entity of a kind an issue links to",
		Long: `Sync the characters, creators, events, stories, variants (kind issue)
or series of a stored issue.

Example:
  comicsync sync related 1 creator`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			kind, err := catalog.ParseKind(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid kind", err)
			}
			return withSyncer(cmd, opts, func(rt *runtime, sy *engine.Syncer) error {
				ctx, cancel := signalContext(cmd)
				defer cancel()
				report, err := sy.SyncRelated(ctx, ids[0], kind)
				if err != nil {
					_ = rt.out.Error(ErrCodeStore, "failed to list related ids", err.Error())
					return WrapExitError(ExitCommandError, "failed to list related ids", err)
				}
				return rt.emit(report)
			})
		},
	}
}

func newSyncPurchasedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "purchased",
		Short:         "Refresh every owned issue",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncer(cmd, opts, func(rt *runtime, sy *engine.Syncer) error {
				ctx, cancel := signalContext(cmd)
				defer cancel()
				report, err := sy.SyncPurchased(ctx)
				if err != nil {
					_ = rt.out.Error(ErrCodeStore, "failed to list purchased issues", err.Error())
					return WrapExitError(ExitCommandError, "failed to list purchased issues", err)
				}
				return rt.emit(report)
			})
		},
	}
}

// withSyncer opens the runtime, builds a syncer and runs fn.
func withSyncer(cmd *cobra.Command, opts *RootOptions, fn func(*runtime, *engine.Syncer) error) error {
	rt, err := openRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	sy, err := rt.syncer()
	if err != nil {
		return err
	}
	return fn(rt, sy)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", a))
		}
		ids = append(ids, id)
	}
	return ids, nil
}
