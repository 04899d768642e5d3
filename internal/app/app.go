// Package app contains the HTTP API.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/observability"
	"github.com/stolasapp/animes/internal/pagination"
	"github.com/stolasapp/animes/internal/sec"
	"github.com/stolasapp/animes/internal/storage"
)

const maxBodySize = "1M"

// New creates the HTTP API server. Every request passes through the gate
// before reaching a handler.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	store storage.Store,
	gate *sec.Gate,
	metrics *observability.Metrics,
	version string,
) (*echo.Echo, error) {
	filters, err := pagination.NewFilterEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize list filters: %w", err)
	}

	srv := echo.New()

	srv.HideBanner = true
	srv.HidePort = true
	srv.Logger.SetLevel(log.OFF)
	srv.Debug = cfg.DevMode
	srv.Validator = newRequestValidator()

	srv.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator: uuid.NewString,
		}),
		logRequests(logger),
		metrics.Middleware(),
		middleware.Secure(),
		middleware.Gzip(),
		gate.Middleware(),
		// request bodies are only read once the gate has let the request in,
		// and the limit applies to the decompressed size
		middleware.Decompress(),
		middleware.BodyLimit(maxBodySize),
	)

	animeHandler{
		store:   store,
		filters: filters,
	}.register(srv)
	userHandler{
		store:  store,
		logger: logger,
	}.register(srv)
	actuatorHandler{
		store:   store,
		logger:  logger,
		metrics: metrics,
		version: version,
	}.register(srv)
	registerDocs(srv)
	return srv, nil
}

func logRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.String("route", c.Path()),
				slog.Duration("latency", latency),
				slog.Int("status", res.Status),
			}
			if principal, ok := sec.GetPrincipal(c.Request().Context()); ok {
				attrs = append(attrs, slog.String("username", principal.Username))
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(
				req.Context(),
				slog.LevelDebug,
				"request handled",
				attrs...,
			)
			return err
		}
	}
}
