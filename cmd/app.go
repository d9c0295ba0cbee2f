package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/larder/internal/config"
	"github.com/papapumpkin/larder/internal/logging"
	"github.com/papapumpkin/larder/internal/metrics"
	"github.com/papapumpkin/larder/internal/session"
	"github.com/papapumpkin/larder/internal/store"
	"github.com/papapumpkin/larder/internal/telemetry"
	"github.com/papapumpkin/larder/internal/ui"
)

// app bundles what every data command needs.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    *store.Store
	events   *telemetry.Emitter
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	out      *ui.Printer
	status   *ui.Printer
	color    bool
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cmd.Context(), cfg.DBPath, store.WithLogger(log))
	if err != nil {
		return nil, err
	}

	var events *telemetry.Emitter
	if cfg.EventsPath != "" {
		if events, err = telemetry.NewEmitter(cfg.EventsPath); err != nil {
			st.Close()
			return nil, err
		}
	}

	noColor, _ := cmd.Flags().GetBool("no-color")
	return &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		events:   events,
		registry: reg,
		metrics:  m,
		out:      ui.NewTo(cmd.OutOrStdout()),
		status:   ui.NewTo(cmd.ErrOrStderr()),
		color:    !noColor && os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(os.Stdout.Fd()),
	}, nil
}

func (a *app) Close() {
	if err := a.events.Close(); err != nil {
		a.log.Warn("closing events", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

// openSession locks a recipe for editing.
func (a *app) openSession(ctx context.Context, recipeID int64) (*session.Session, error) {
	return session.Open(ctx, a.store, recipeID, a.cfg.LockDir,
		session.WithLockTimeout(a.cfg.LockTimeout),
		session.WithLogger(a.log),
		session.WithEvents(a.events),
		session.WithMetrics(a.metrics),
	)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
