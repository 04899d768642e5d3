// Package client is a typed HTTP client for the animes API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/stolasapp/animes/internal/pagination"
	"github.com/stolasapp/animes/internal/storage/db"
)

// StatusError is returned for any response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error satisfies [error].
func (serr StatusError) Error() string {
	if serr.Message == "" {
		return fmt.Sprintf("unexpected status %d", serr.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", serr.StatusCode, serr.Message)
}

// User is a user as returned by the API. Password hashes are never exposed.
type User struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// ListOptions selects a page of animes. Zero values defer to the server's
// defaults.
type ListOptions struct {
	Page   int64
	Size   int64
	Sort   string
	Desc   bool
	Filter string
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying [http.Client].
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// Client calls the API with HTTP Basic credentials sent on every request.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	username string
	password string
}

// New creates a client for the API served at baseURL.
func New(baseURL, username, password string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	client := &Client{
		baseURL:  base,
		http:     http.DefaultClient,
		username: username,
		password: password,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ListAnimes returns one page of animes.
func (c *Client) ListAnimes(ctx context.Context, opts ListOptions) (pagination.Page[db.Anime], error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set(pagination.PageParam, strconv.FormatInt(opts.Page, 10))
	}
	if opts.Size > 0 {
		query.Set(pagination.SizeParam, strconv.FormatInt(opts.Size, 10))
	}
	if opts.Sort != "" {
		sort := opts.Sort
		if opts.Desc {
			sort += ",desc"
		}
		query.Set(pagination.SortParam, sort)
	}
	if opts.Filter != "" {
		query.Set(pagination.FilterParam, opts.Filter)
	}
	var page pagination.Page[db.Anime]
	err := c.do(ctx, http.MethodGet, "/animes", query, nil, http.StatusOK, &page)
	return page, err
}

// ListAllAnimes returns every anime.
func (c *Client) ListAllAnimes(ctx context.Context) ([]db.Anime, error) {
	var animes []db.Anime
	err := c.do(ctx, http.MethodGet, "/animes/all", nil, nil, http.StatusOK, &animes)
	return animes, err
}

// GetAnime returns the anime with the given ID.
func (c *Client) GetAnime(ctx context.Context, id uint64) (db.Anime, error) {
	var anime db.Anime
	err := c.do(ctx, http.MethodGet, "/animes/"+strconv.FormatUint(id, 10), nil, nil, http.StatusOK, &anime)
	return anime, err
}

// FindAnimesByName returns the animes named exactly name.
func (c *Client) FindAnimesByName(ctx context.Context, name string) ([]db.Anime, error) {
	var animes []db.Anime
	query := url.Values{"name": {name}}
	err := c.do(ctx, http.MethodGet, "/animes/findByName", query, nil, http.StatusOK, &animes)
	return animes, err
}

// CreateAnime creates an anime with the given name and returns it with its
// assigned ID.
func (c *Client) CreateAnime(ctx context.Context, name string) (db.Anime, error) {
	var anime db.Anime
	body := map[string]string{"name": name}
	err := c.do(ctx, http.MethodPost, "/animes/admin", nil, body, http.StatusCreated, &anime)
	return anime, err
}

// ReplaceAnime overwrites an existing anime.
func (c *Client) ReplaceAnime(ctx context.Context, anime db.Anime) error {
	return c.do(ctx, http.MethodPut, "/animes/admin", nil, anime, http.StatusNoContent, nil)
}

// DeleteAnime deletes the anime with the given ID.
func (c *Client) DeleteAnime(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, "/animes/admin/"+strconv.FormatUint(id, 10), nil, nil, http.StatusNoContent, nil)
}

// GetUser returns the user with the given ID.
func (c *Client) GetUser(ctx context.Context, id uint64) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/users/admin/"+strconv.FormatUint(id, 10), nil, nil, http.StatusOK, &user)
	return user, err
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	in any,
	wantStatus int,
	out any,
) error {
	target := c.baseURL.JoinPath(path)
	target.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != wantStatus {
		return readStatusError(res)
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func readStatusError(res *http.Response) error {
	serr := StatusError{StatusCode: res.StatusCode}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(res.Body).Decode(&msg); err == nil {
		serr.Message = msg.Message
	}
	return serr
}
