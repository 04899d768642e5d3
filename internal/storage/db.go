package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"unicode/utf8"

	"github.com/influxdata/influxdb/pkg/snowflake"
	"github.com/jmoiron/sqlx"

	"github.com/stolasapp/animes/internal/storage/db"
)

// Username validation constraints.
const (
	minUsernameLen = 3
	maxUsernameLen = 64
)

// MaxAnimeNameLen is the longest anime name accepted, in characters.
const MaxAnimeNameLen = 255

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validateUsername validates that a username meets the requirements:
// 3-64 characters, alphanumeric and underscores only.
func validateUsername(name string) bool {
	return len(name) >= minUsernameLen &&
		len(name) <= maxUsernameLen &&
		usernameRegex.MatchString(name)
}

func validateAnimeName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= MaxAnimeNameLen
}

// DB is a [Store] backed by a SQLite database.
type DB struct {
	ids     *snowflake.Generator
	db      *sqlx.DB
	queries *db.Queries
}

// NewDB opens (and migrates) the SQLite database at dbPath. Use
// [db.MemoryPath] for a throwaway in-memory database.
func NewDB(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	handle, err := db.Open(ctx, logger, dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{
		ids:     snowflake.New(rand.IntN(1023)), //nolint:gosec,mnd // this isn't for crypto
		db:      handle,
		queries: db.New(handle),
	}, nil
}

// Ping satisfies the [Store] interface.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close satisfies the [Store] interface.
func (d *DB) Close() error {
	return d.db.Close()
}

// ListUsers satisfies the [Users] interface.
func (d *DB) ListUsers(ctx context.Context, afterName string, limit int32) ([]db.User, error) {
	return d.queries.GetUsers(ctx, db.GetUsersParams{
		AfterName: afterName,
		Limit:     int64(limit),
	})
}

// GetUser satisfies the [Users] interface.
func (d *DB) GetUser(ctx context.Context, userID uint64) (db.User, error) {
	user, err := d.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	}
	return user, err
}

// GetUserByName satisfies the [Users] interface.
func (d *DB) GetUserByName(ctx context.Context, name string) (db.User, error) {
	user, err := d.queries.GetUserByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return user, ErrNotFound
	}
	return user, err
}

// UpsertUser satisfies the [Users] interface.
func (d *DB) UpsertUser(ctx context.Context, user db.User) error {
	if !validateUsername(user.Username) {
		return ErrInvalidUsername
	}
	if user.ID == 0 {
		user.ID = d.ids.Next()
	}
	if user.Roles == nil {
		user.Roles = db.Roles{}
	}
	switch _, err := d.queries.UpsertUser(ctx, user); {
	case errors.Is(err, sql.ErrNoRows):
		return ErrAlreadyExists
	default:
		return err
	}
}

// DeleteUser satisfies the [Users] interface.
func (d *DB) DeleteUser(ctx context.Context, userID uint64) error {
	return d.queries.DeleteUser(ctx, userID)
}

// ListAnimes satisfies the [Animes] interface.
func (d *DB) ListAnimes(ctx context.Context, page AnimePage) ([]db.Anime, int64, error) {
	total, err := d.queries.CountAnimes(ctx)
	if err != nil {
		return nil, 0, err
	}
	animes, err := d.queries.GetAnimes(ctx, db.GetAnimesParams{
		OrderBy: page.OrderBy,
		Desc:    page.Desc,
		Offset:  page.Offset,
		Limit:   page.Limit,
	})
	if err != nil {
		return nil, 0, err
	}
	return nonNil(animes), total, nil
}

// ListAllAnimes satisfies the [Animes] interface.
func (d *DB) ListAllAnimes(ctx context.Context) ([]db.Anime, error) {
	animes, err := d.queries.GetAllAnimes(ctx)
	return nonNil(animes), err
}

// GetAnime satisfies the [Animes] interface.
func (d *DB) GetAnime(ctx context.Context, id uint64) (db.Anime, error) {
	anime, err := d.queries.GetAnime(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return anime, ErrNotFound
	}
	return anime, err
}

// FindAnimesByName satisfies the [Animes] interface.
func (d *DB) FindAnimesByName(ctx context.Context, name string) ([]db.Anime, error) {
	if name == "" {
		return []db.Anime{}, nil
	}
	animes, err := d.queries.GetAnimesByName(ctx, name)
	return nonNil(animes), err
}

// CreateAnime satisfies the [Animes] interface.
func (d *DB) CreateAnime(ctx context.Context, anime db.Anime) (db.Anime, error) {
	if !validateAnimeName(anime.Name) {
		return db.Anime{}, ErrInvalidName
	}
	anime.ID = d.ids.Next()
	if err := d.queries.InsertAnime(ctx, anime); err != nil {
		return db.Anime{}, err
	}
	return anime, nil
}

// ReplaceAnime satisfies the [Animes] interface.
func (d *DB) ReplaceAnime(ctx context.Context, anime db.Anime) error {
	if !validateAnimeName(anime.Name) {
		return ErrInvalidName
	}
	n, err := d.queries.UpdateAnime(ctx, anime)
	if err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnime satisfies the [Animes] interface.
func (d *DB) DeleteAnime(ctx context.Context, id uint64) error {
	n, err := d.queries.DeleteAnime(ctx, id)
	if err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ Store = (*DB)(nil)
