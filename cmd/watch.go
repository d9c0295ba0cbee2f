package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/larder/internal/importer"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import recipe documents as they appear in a directory",
	Long: `Watches a directory and imports each recipe document when it is written.
Existing documents are imported first. With --metrics-addr, Prometheus
metrics are served on /metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.Flags().Bool("skip-existing", false, "do not import documents already in the directory")
	_ = viper.BindPFlag("metrics.addr", watchCmd.Flags().Lookup("metrics-addr"))
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.status.Info("serving metrics on " + addr + "/metrics")
	}

	if skip, _ := cmd.Flags().GetBool("skip-existing"); !skip {
		paths, err := importer.DocumentFiles(dir)
		if err != nil {
			return err
		}
		if len(paths) > 0 {
			importAll(ctx, a, paths, a.cfg.Import.Workers)
		}
	}

	w, err := importer.NewWatcher(dir, a.cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	a.status.Info("watching " + dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			if change.Removed {
				a.log.Debug("document removed", "path", change.Path)
				continue
			}
			importAll(ctx, a, []string{change.Path}, 1)
		}
	}
}
