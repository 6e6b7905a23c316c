package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zanemmiller2/pi-comic-scanner/internal/config"
	"github.com/zanemmiller2/pi-comic-scanner/internal/engine"
	"github.com/zanemmiller2/pi-comic-scanner/internal/provider"
	"github.com/zanemmiller2/pi-comic-scanner/internal/store"
)

// runtime is what a command needs to touch the catalog: settings, an open
// store and an output formatter.
type runtime struct {
	opts  *RootOptions
	cfg   *config.Config
	store *store.Store
	out   *OutputFormatter
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig reads settings and applies the --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config, opts.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}
	slog.Debug("config loaded", "config", cfg.String())
	return cfg, nil
}

// openRuntime loads settings and opens the store. The caller must Close it.
func openRuntime(cmd *cobra.Command, opts *RootOptions) (*runtime, error) {
	out := newFormatter(cmd, opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, err
	}

	dialect, ok := store.DialectFor(cfg.Database.Driver)
	if !ok {
		err := NewExitError(ExitCommandError, fmt.Sprintf("unsupported database driver %q", cfg.Database.Driver))
		_ = out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, err
	}

	slog.Debug("opening database", "driver", dialect.Driver, "dsn", cfg.Database.DSN)
	var storeOpts []store.Option
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock.Now))
	}
	st, err := store.OpenDialect(dialect, cfg.Database.DSN, storeOpts...)
	if err != nil {
		_ = out.Error(ErrCodeStore, "failed to open database", err.Error())
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &runtime{opts: opts, cfg: cfg, store: st, out: out}, nil
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// syncer builds an engine over the store and a provider client. Provider
// credentials must be configured.
func (rt *runtime) syncer(extra ...engine.Option) (*engine.Syncer, error) {
	if err := rt.cfg.RequireCredentials(); err != nil {
		_ = rt.out.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "provider not configured", err)
	}

	client := provider.NewClient(rt.cfg.Provider.BaseURL,
		provider.Signer{PublicKey: rt.cfg.Provider.PublicKey, PrivateKey: rt.cfg.Provider.PrivateKey},
		provider.WithHTTPClient(&http.Client{Timeout: rt.cfg.Timeout()}),
	)

	opts := []engine.Option{
		engine.WithSweep(rt.cfg.Sweep.PageSize, rt.cfg.Sweep.MaxPages, rt.cfg.MaxAge()),
	}
	if rt.opts.RunIDs != nil {
		opts = append(opts, engine.WithRunIDs(rt.opts.RunIDs))
	}
	if rt.opts.Clock != nil {
		opts = append(opts, engine.WithClock(rt.opts.Clock))
	}
	return engine.New(rt.store, client, append(opts, extra...)...), nil
}

// emit prints reports and turns failed or interrupted runs into an exit
// code.
func (rt *runtime) emit(reports ...*engine.Report) error {
	var data any
	if len(reports) == 1 {
		data = reportView{reports[0]}
	} else {
		views := make(reportViews, len(reports))
		for i, r := range reports {
			views[i] = reportView{r}
		}
		data = views
	}
	if err := rt.out.Success(data); err != nil {
		return err
	}

	failed, interrupted := 0, false
	for _, r := range reports {
		failed += r.Failed()
		interrupted = interrupted || r.Interrupted
	}
	switch {
	case interrupted:
		return NewExitError(ExitFailure, "run interrupted")
	case failed > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d item(s) failed", failed))
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM. The engine checks it
// between items, so the item in flight always finishes.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, finishing current item", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

// reportView renders a report for the OutputFormatter.
type reportView struct {
	*engine.Report
}

func (v reportView) runID() string { return v.RunID }

func (v reportView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (run %s)", v.Summary(), v.RunID)
	for _, o := range v.Items {
		fmt.Fprintf(&b, "\n  %-9s %-28s", o.Status, o.Key)
		switch {
		case o.Status == engine.StatusCommitted:
			fmt.Fprintf(&b, " stubs=%d links=%d", o.Stubs, o.Links)
			if o.Dropped > 0 {
				fmt.Fprintf(&b, " dropped=%d", o.Dropped)
			}
		case o.Code != engine.CodeNone:
			fmt.Fprintf(&b, " %s: %s", o.Code, o.Error)
		default:
			fmt.Fprintf(&b, " %s", o.Error)
		}
	}
	return b.String()
}

type reportViews []reportView

func (vs reportViews) String() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, "\n")
}
