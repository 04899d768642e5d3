package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stolasapp/animes/internal/observability"
)

// Health statuses reported by /actuator/health.
const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

type healthResponse struct {
	Status string `json:"status"`
}

type infoResponse struct {
	App appInfo `json:"app"`
}

type appInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type actuatorHandler struct {
	store   pinger
	logger  *slog.Logger
	metrics *observability.Metrics
	version string
}

func (h actuatorHandler) register(e *echo.Echo) {
	actuator := e.Group("/actuator")
	actuator.GET("/health", h.health)
	actuator.GET("/info", h.info)
	actuator.GET("/prometheus", echo.WrapHandler(h.metrics.Handler()))
}

func (h actuatorHandler) health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		h.logger.ErrorContext(c.Request().Context(), "health check failed", slog.Any("error", err))
		return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: statusDown})
	}
	return c.JSON(http.StatusOK, healthResponse{Status: statusUp})
}

func (h actuatorHandler) info(c echo.Context) error {
	return c.JSON(http.StatusOK, infoResponse{
		App: appInfo{Name: "animes", Version: h.version},
	})
}
