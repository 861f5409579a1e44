package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/track-cli/internal/metrics"
	"github.com/sells-group/track-cli/internal/presence"
	"github.com/sells-group/track-cli/internal/server"
	"github.com/sells-group/track-cli/internal/tracking"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		sessions := tracking.NewSessions()
		metrics.NewSessionsGauge(cfg.Metrics.Namespace, reg, sessions.Len)
		hub := presence.NewHub()

		proxyTarget := ""
		if cfg.Server.ProxyEnabled {
			proxyTarget = cfg.Carrier.BaseURL
		}

		srv, err := server.New(ctx, server.Config{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			ProxyTarget:    proxyTarget,
			Delay:          cfg.Batch.Delay(),
			AbortInFlight:  cfg.Batch.AbortInFlight,
			SheetName:      cfg.Export.SheetName,
		}, server.Deps{
			Carrier:     newCarrierClient(cfg.Carrier),
			Sessions:    sessions,
			Presence:    hub,
			Observer:    metrics.NewTrackingMetrics(cfg.Metrics.Namespace, reg),
			HTTPMetrics: metrics.NewHTTPMetrics(cfg.Metrics.Namespace, reg),
			Gatherer:    reg,
		})
		if err != nil {
			return err
		}

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return hub.Run(gctx, cfg.Server.PresenceInterval())
		})

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		// Graceful shutdown
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			sessions.Shutdown()

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
