package client

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stolasapp/animes/internal/pagination"
	"github.com/stolasapp/animes/internal/storage/db"
)

const baseURL = "http://animes.test/api"

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client, err := New(baseURL, "vinicius", "springessentials2",
		WithHTTPClient(&http.Client{Transport: transport}))
	require.NoError(t, err)
	return client, transport
}

// requireAuth wraps a responder, asserting that Basic credentials were sent.
func requireAuth(t *testing.T, next httpmock.Responder) httpmock.Responder {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		username, password, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "vinicius", username)
		assert.Equal(t, "springessentials2", password)
		return next(req)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New("not a url", "u", "p")
	require.Error(t, err)

	_, err = New("/relative", "u", "p")
	require.Error(t, err)

	client, err := New(baseURL, "u", "p")
	require.NoError(t, err)
	assert.Same(t, http.DefaultClient, client.http)
}

func TestClient_ListAnimes(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	want := pagination.Page[db.Anime]{
		Content:          []db.Anime{{ID: 7, Name: "Naruto"}},
		TotalElements:    1,
		TotalPages:       1,
		Size:             5,
		NumberOfElements: 1,
		First:            true,
		Last:             true,
	}
	transport.RegisterResponder(http.MethodGet, baseURL+"/animes",
		requireAuth(t, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "2", req.URL.Query().Get("page"))
			assert.Equal(t, "5", req.URL.Query().Get("size"))
			assert.Equal(t, "name,desc", req.URL.Query().Get("sort"))
			assert.Equal(t, `this.id > 1`, req.URL.Query().Get("filter"))
			return httpmock.NewJsonResponse(http.StatusOK, want)
		}))

	got, err := client.ListAnimes(t.Context(), ListOptions{
		Page:   2,
		Size:   5,
		Sort:   "name",
		Desc:   true,
		Filter: "this.id > 1",
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestClient_Animes(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	naruto := db.Anime{ID: 7, Name: "Naruto"}

	transport.RegisterResponder(http.MethodGet, baseURL+"/animes/all",
		requireAuth(t, httpmock.NewJsonResponderOrPanic(http.StatusOK, []db.Anime{naruto})))
	transport.RegisterResponder(http.MethodGet, baseURL+"/animes/7",
		requireAuth(t, httpmock.NewJsonResponderOrPanic(http.StatusOK, naruto)))
	transport.RegisterResponder(http.MethodGet, baseURL+"/animes/findByName?name=Naruto",
		requireAuth(t, httpmock.NewJsonResponderOrPanic(http.StatusOK, []db.Anime{naruto})))
	transport.RegisterResponder(http.MethodPost, baseURL+"/animes/admin",
		requireAuth(t, func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			body, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"Naruto"}`, string(body))
			return httpmock.NewJsonResponse(http.StatusCreated, naruto)
		}))
	transport.RegisterResponder(http.MethodPut, baseURL+"/animes/admin",
		requireAuth(t, func(req *http.Request) (*http.Response, error) {
			var anime db.Anime
			require.NoError(t, json.NewDecoder(req.Body).Decode(&anime))
			assert.Equal(t, db.Anime{ID: 7, Name: "Naruto Shippuden"}, anime)
			return httpmock.NewStringResponse(http.StatusNoContent, ""), nil
		}))
	transport.RegisterResponder(http.MethodDelete, baseURL+"/animes/admin/7",
		requireAuth(t, httpmock.NewStringResponder(http.StatusNoContent, "")))

	all, err := client.ListAllAnimes(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []db.Anime{naruto}, all)

	got, err := client.GetAnime(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, naruto, got)

	found, err := client.FindAnimesByName(t.Context(), "Naruto")
	require.NoError(t, err)
	assert.Equal(t, []db.Anime{naruto}, found)

	created, err := client.CreateAnime(t.Context(), "Naruto")
	require.NoError(t, err)
	assert.Equal(t, naruto, created)

	require.NoError(t, client.ReplaceAnime(t.Context(), db.Anime{ID: 7, Name: "Naruto Shippuden"}))
	require.NoError(t, client.DeleteAnime(t.Context(), 7))

	assert.Equal(t, 6, transport.GetTotalCallCount())
}

func TestClient_GetUser(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, baseURL+"/users/admin/1",
		requireAuth(t, httpmock.NewStringResponder(http.StatusOK,
			`{"id":1,"name":"Vinicius","username":"vinicius","roles":["ADMIN","USER"]}`)))

	user, err := client.GetUser(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 1, Name: "Vinicius", Username: "vinicius", Roles: []string{"ADMIN", "USER"}}, user)
}

func TestClient_StatusErrors(t *testing.T) {
	t.Parallel()

	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodGet, baseURL+"/animes/404",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"message":"Anime not found"}`))
	transport.RegisterResponder(http.MethodDelete, baseURL+"/animes/admin/1",
		httpmock.NewStringResponder(http.StatusForbidden, `{"message":"Forbidden"}`))
	transport.RegisterResponder(http.MethodGet, baseURL+"/animes/all",
		httpmock.NewStringResponder(http.StatusBadGateway, `<html>bad gateway</html>`))
	transport.RegisterResponder(http.MethodGet, baseURL+"/animes/1",
		httpmock.NewStringResponder(http.StatusOK, `{not json`))

	_, err := client.GetAnime(t.Context(), 404)
	var serr StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StatusError{StatusCode: http.StatusBadRequest, Message: "Anime not found"}, serr)
	assert.EqualError(t, err, "unexpected status 400: Anime not found")

	err = client.DeleteAnime(t.Context(), 1)
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusForbidden, serr.StatusCode)

	_, err = client.ListAllAnimes(t.Context())
	require.ErrorAs(t, err, &serr)
	assert.EqualError(t, err, "unexpected status 502")

	_, err = client.GetAnime(t.Context(), 1)
	require.ErrorContains(t, err, "failed to decode")
}
