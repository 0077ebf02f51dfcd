package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/chunkytofustudios/analytics-gate/internal/site"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site and deliver analytics events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := InitConfigWithError()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServe(ctx, cfg)
	},
}

func runServe(ctx context.Context, cfg config.Config) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	server, siteErr := site.NewServer(cfg, rt.gate, rt.routes, rt.recorder)
	if siteErr != nil {
		return siteErr
	}

	rt.logger.Info("serving",
		zap.String("listen_addr", cfg.ListenAddr()),
		zap.String("site_dir", cfg.SiteDir()),
		zap.String("measurement_id", cfg.MeasurementID()),
		zap.Bool("dry_run", cfg.DryRun() || cfg.APISecret() == ""),
		zap.String("environment", string(cfg.Environment())),
	)

	rt.gate.BeginInitialization()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.ListenAndServe(groupCtx)
	})
	group.Go(func() error {
		return rt.dispatcher.Run(groupCtx)
	})

	if err := group.Wait(); err != nil {
		rt.logger.Error("server stopped", zap.Error(err))
		return err
	}
	rt.logger.Info("server stopped")
	return nil
}
