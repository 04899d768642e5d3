package client

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stolasapp/animes/internal/app"
	"github.com/stolasapp/animes/internal/config"
	"github.com/stolasapp/animes/internal/observability"
	"github.com/stolasapp/animes/internal/pagination"
	"github.com/stolasapp/animes/internal/sec"
	"github.com/stolasapp/animes/internal/storage"
	"github.com/stolasapp/animes/internal/storage/db"
)

func newIntegrationServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	store, err := storage.NewDB(t.Context(), db.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hasher, err := sec.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	adminHash, err := hasher.Hash([]byte("springessentials2"))
	require.NoError(t, err)
	userHash, err := hasher.Hash([]byte("test2"))
	require.NoError(t, err)
	require.NoError(t, store.UpsertUser(t.Context(), db.User{
		ID: 1, Username: "vinicius", Name: "Vinicius", PasswordHash: adminHash, Roles: db.Roles{"ADMIN", "USER"},
	}))
	require.NoError(t, store.UpsertUser(t.Context(), db.User{
		ID: 2, Username: "vinicius_test", Name: "Vinicius Test", PasswordHash: userHash, Roles: db.Roles{"ROLE_USER"},
	}))

	cfg := config.Default()
	provider, err := sec.NewProvider(store, hasher)
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	gate, err := sec.NewGate(&cfg.Security, provider, logger, metrics)
	require.NoError(t, err)
	handler, err := app.New(cfg, logger, store, gate, metrics, "test")
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Integration(t *testing.T) {
	t.Parallel()

	srv := newIntegrationServer(t)
	admin, err := New(srv.URL, "vinicius", "springessentials2", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	user, err := New(srv.URL, "vinicius_test", "test2", WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	stranger, err := New(srv.URL, "vinicius", "wrong", WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	ctx := t.Context()
	name := gofakeit.MovieName()

	created, err := admin.CreateAnime(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, name, created.Name)

	_, err = user.CreateAnime(ctx, name)
	var serr StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.StatusCode)

	_, err = stranger.ListAllAnimes(ctx)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)

	page, err := user.ListAnimes(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []db.Anime{created}, page.Content)
	assert.Equal(t, int64(pagination.DefaultSize), page.Size)

	found, err := user.FindAnimesByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []db.Anime{created}, found)

	created.Name += " II"
	require.NoError(t, admin.ReplaceAnime(ctx, created))
	got, err := user.GetAnime(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	err = user.DeleteAnime(ctx, created.ID)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.StatusCode)

	require.NoError(t, admin.DeleteAnime(ctx, created.ID))
	_, err = user.GetAnime(ctx, created.ID)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusError{StatusCode: http.StatusBadRequest, Message: "Anime not found"}, serr)

	self, err := admin.GetUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 2, Name: "Vinicius Test", Username: "vinicius_test", Roles: []string{"USER"}}, self)
}
