package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/folio/internal/api"
	"github.com/newthinker/folio/internal/app"
	"github.com/newthinker/folio/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the folio API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, cfg *config.Config, log *zap.Logger) error {
		metricsPath := ""
		if cfg.Metrics.Enabled {
			metricsPath = cfg.Metrics.Path
		}

		server, err := api.NewServer(api.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			APIKey:      cfg.Server.APIKey,
			JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
			MaxJobs:     cfg.Server.MaxJobs,
			MetricsPath: metricsPath,
		}, api.Dependencies{
			App:      a,
			Profiles: a.Profiles(),
			Metrics:  a.Metrics(),
		}, log)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("starting: %w", err)
		}

		log.Info("starting folio server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("auth", cfg.Server.APIKey != ""),
		)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		log.Info("shutting down folio server")

		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
}
