package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/sec"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cfg := config.Default()
		logger := newLogger(&buf, false, cfg)
		logger.Debug("hidden")
		logger.Info("shown", slog.String("key", "value"))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "value", entry["key"])
		assert.NotContains(t, entry, slog.SourceKey)
	})

	t.Run("text with source", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		cfg := config.Default()
		cfg.DevMode = true
		cfg.LogLevel = slog.LevelDebug
		logger := newLogger(&buf, true, cfg)
		logger.Debug("shown")

		out := buf.String()
		assert.Contains(t, out, "msg=shown")
		assert.Contains(t, out, "source=")
	})
}

func TestMetrics_RecordOutcome(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	metrics.RecordOutcome(sec.OutcomeAllowed)
	metrics.RecordOutcome(sec.OutcomeAllowed)
	metrics.RecordOutcome(sec.OutcomeForbidden)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.gateDecisions.WithLabelValues("allowed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.gateDecisions.WithLabelValues("forbidden")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.gateDecisions.WithLabelValues("challenged")), 0)
}

func TestMetrics_Middleware(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	e := echo.New()
	e.Use(metrics.Middleware())
	e.GET("/animes/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/denied", func(echo.Context) error {
		return echo.ErrForbidden
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	for _, target := range []string{"/animes/1", "/animes/2", "/denied"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	}

	assert.Equal(t, 2, testutil.CollectAndCount(metrics.requestDuration))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `animes_request_duration_seconds_count{method="GET",route="/animes/:id",status_code="200"} 2`)
	assert.Contains(t, body, `animes_request_duration_seconds_count{method="GET",route="/denied",status_code="403"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
