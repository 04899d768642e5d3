package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stolasapp/animes/internal/app"
	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/observability"
	"github.com/stolasapp/animes/internal/sec"
	"github.com/stolasapp/animes/internal/server"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the anime catalog HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (runErr error) {
			cfg, logger, store, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					runErr = errors.Join(runErr, err)
				}
			}()

			hasher, err := sec.NewHasher(cfg.Security.BcryptCost)
			if err != nil {
				return err
			}
			provider, err := sec.NewProvider(store, hasher)
			if err != nil {
				return err
			}
			metrics := observability.NewMetrics()
			gate, err := sec.NewGate(&cfg.Security, provider, logger, metrics)
			if err != nil {
				return err
			}
			appServer, err := app.New(cfg, logger, store, gate, metrics, version())
			if err != nil {
				return err
			}

			grp, ctx := errgroup.WithContext(cmd.Context())
			serveApp(ctx, grp, cfg, logger, appServer)
			return grp.Wait()
		},
	}
}

func serveApp(
	ctx context.Context,
	grp *errgroup.Group,
	cfg *config.Config,
	logger *slog.Logger,
	srv *echo.Echo,
) {
	listener, err := server.Listen(ctx, cfg.WebAddress)
	if err != nil {
		grp.Go(func() error { return err })
		return
	}

	logger.InfoContext(ctx,
		"starting app server...",
		slog.String("address", listener.Addr().String()),
		slog.Int("access_rules", len(cfg.Security.Rules)),
	)
	server.Serve(ctx, grp, srv.Server, listener, server.Timeouts{
		Read:     cfg.ReadTimeout,
		Write:    cfg.WriteTimeout,
		Shutdown: cfg.ShutdownTimeout,
	})
}
