package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	WriteConfig string
	Force       bool
}

// TableCount is the number of rows in one table.
type TableCount struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// InitResult describes the initialized database.
type InitResult struct {
	Driver string       `json:"driver"`
	DSN    string       `json:"dsn"`
	Config string       `json:"config,omitempty"`
	Tables []TableCount `json:"tables"`
}

func (r InitResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Database ready: %s (%s)", r.DSN, r.Driver)
	if r.Config != "" {
		fmt.Fprintf(&b, "\nSettings written to %s", r.Config)
	}
	for _, t := range r.Tables {
		if t.Rows > 0 {
			fmt.Fprintf(&b, "\n  %-24s %d", t.Table, t.Rows)
		}
	}
	return b.String()
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the catalog database",
		Long: `Create the catalog database and apply the schema. Running init on an
existing database is safe; it reports the row count of every table.

Example:
  comicsync init --db ./comics.db
  comicsync init --write-config ./comicsync.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.WriteConfig, "write-config", "", "write the effective settings to this YAML file")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing settings file")

	return cmd
}

func runInit(cmd *cobra.Command, opts *InitOptions) error {
	rt, err := openRuntime(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	result := InitResult{Driver: rt.cfg.Database.Driver, DSN: rt.cfg.Database.DSN}

	if opts.WriteConfig != "" {
		if err := writeConfigFile(rt, opts.WriteConfig, opts.Force); err != nil {
			_ = rt.out.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write settings", err)
		}
		result.Config = opts.WriteConfig
	}

	for _, table := range store.DumpTables() {
		n, err := rt.store.CountRows(cmd.Context(), table)
		if err != nil {
			_ = rt.out.Error(ErrCodeStore, "failed to count rows", err.Error())
			return WrapExitError(ExitCommandError, "failed to count rows", err)
		}
		result.Tables = append(result.Tables, TableCount{Table: table, Rows: n})
	}

	return rt.out.Success(result)
}

func writeConfigFile(rt *runtime, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := rt.cfg.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
