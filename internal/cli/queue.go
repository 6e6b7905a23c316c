package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zanemmiller2/pi-comic-scanner/internal/catalog"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
)

// QueueResult is the outcome of a queue add or remove.
type QueueResult struct {
	Action  string   `json:"action"`
	Codes   []string `json:"codes"`
	Changed int64    `json:"changed"`
}

func (r QueueResult) String() string {
	return fmt.Sprintf("%s %d row(s): %s", r.Action, r.Changed, strings.Join(r.Codes, " "))
}

// QueueList is the content of the acquisition queue.
type QueueList []catalog.ScannedCode

func (l QueueList) String() string {
	if len(l) == 0 {
		return "Queue is empty"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d queued code(s)", len(l))
	for _, sc := range l {
		fmt.Fprintf(&b, "\n  %s  %s", sc.ScannedOn, sc.Raw())
	}
	return b.String()
}

// NewQueueCommand creates the queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the acquisition queue of scanned codes",
		Long: `The acquisition queue holds scanned codes (PREFIX-CODE) until
"comicsync acquire" commits them.`,
	}

	cmd.AddCommand(newQueueAddCommand(rootOpts))
	cmd.AddCommand(newQueueListCommand(rootOpts))
	cmd.AddCommand(newQueueRemoveCommand(rootOpts))

	return cmd
}

func newQueueAddCommand(opts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "add <PREFIX-CODE>...",
		Short: "Queue scanned codes",
		Long: `Queue one or more scanned codes. The scan date defaults to today.

Example:
  comicsync queue add 00111-75960608936900111
  comicsync queue add --date 2024-03-01 00111-75960608936900111 00211-75960608936900211`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				var clock engine.Clock = engine.SystemClock{}
				if opts.Clock != nil {
					clock = opts.Clock
				}
				date = clock.Now().Format(time.DateOnly)
			} else if _, err := time.Parse(time.DateOnly, date); err != nil {
				return WrapExitError(ExitCommandError, "invalid --date", err)
			}

			codes := make([]catalog.ScannedCode, 0, len(args))
			for _, raw := range args {
				sc, err := catalog.ParseScannedCode(raw)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid code", err)
				}
				sc.ScannedOn = date
				codes = append(codes, sc)
			}

			rt, err := openRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			result := QueueResult{Action: "queued", Codes: args}
			for _, sc := range codes {
				inserted, err := rt.store.Enqueue(cmd.Context(), sc)
				if err != nil {
					_ = rt.out.Error(ErrCodeStore, "failed to queue code", err.Error())
					return WrapExitError(ExitCommandError, "failed to queue code", err)
				}
				if inserted {
					result.Changed++
				}
			}
			return rt.out.Success(result)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "scan date (YYYY-MM-DD)")

	return cmd
}

func newQueueListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List queued codes in the order they were added",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			codes, err := rt.store.DequeueAll(cmd.Context())
			if err != nil {
				_ = rt.out.Error(ErrCodeStore, "failed to read queue", err.Error())
				return WrapExitError(ExitCommandError, "failed to read queue", err)
			}
			return rt.out.Success(QueueList(codes))
		},
	}
}

func newQueueRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <PREFIX-CODE>...",
		Short:         "Drop scanned codes from the queue",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			result := QueueResult{Action: "removed", Codes: args}
			for _, raw := range args {
				n, err := rt.store.Remove(cmd.Context(), raw)
				if err != nil {
					_ = rt.out.Error(ErrCodeArgument, "failed to remove code", err.Error())
					return WrapExitError(ExitCommandError, "failed to remove code", err)
				}
				result.Changed += n
			}
			return rt.out.Success(result)
		},
	}
}
