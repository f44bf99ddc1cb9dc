package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan mailboxes on an interval and serve Prometheus metrics",
	Long: `Run a scan immediately and then on every interval until interrupted.
Metrics are served at /metrics on --metrics-addr. Sending SIGHUP reloads the
rule base from --rules without restarting.`,
	RunE: runWatch,
}

var (
	watchInterval    time.Duration
	watchMetricsAddr string
)

func init() {
	addScanFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Time between scans (default from config, 15m)")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Listen address for /metrics (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func runWatch(_ *cobra.Command, _ []string) error {
	opts, err := scanOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := newScanEnv(ctx, scanMailboxes, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	interval := watchInterval
	if interval <= 0 {
		if interval, err = env.cfg.Interval(15 * time.Minute); err != nil {
			return err
		}
	}
	addr := watchMetricsAddr
	if addr == "" {
		addr = env.cfg.MetricsAddr
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := newMetricsServer(addr)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go reloadOnHangup(ctx, env)

	env.logger.Info("watching mailboxes",
		zap.String("user", env.cfg.UserID),
		zap.Int("mailboxes", len(env.sources)),
		zap.Duration("interval", interval),
		zap.String("metrics", "http://"+ln.Addr().String()+"/metrics"),
	)

	err = env.scanner.Watch(ctx, env.cfg.UserID, env.sources, interval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reloadOnHangup swaps in a freshly loaded rule base on every SIGHUP. A rule
// file that fails to load leaves the current rules in place.
func reloadOnHangup(ctx context.Context, env *scanEnv) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			rs, err := loadRuleSet(env.cfg.RulesPath)
			if err != nil {
				env.logger.Error("rule reload failed", zap.String("rules", env.cfg.RulesPath), zap.Error(err))
				continue
			}
			env.engine.Reload(rs)
		}
	}
}
