// Package storage provides the state management for animes and users.
package storage

import (
	"context"

	"github.com/stolasapp/animes/internal/storage/db"
)

const (
	// ErrNotFound is returned when an anime or user cannot be found.
	ErrNotFound Error = "not found"
	// ErrAlreadyExists is returned if a unique user already exists.
	ErrAlreadyExists Error = "already exists"
	// ErrInvalidUsername is returned when a username fails validation.
	ErrInvalidUsername Error = "username must be 3-64 characters, alphanumeric and underscores only"
	// ErrInvalidName is returned when an anime name is empty or too long.
	ErrInvalidName Error = "anime name must be 1-255 characters"
	// ErrInternal is returned for any other type of error.
	ErrInternal Error = "internal error"
)

// Error is an error type returned by the storage implementation.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Users are the methods on a storage implementation that are responsible for
// accessing and modifying users.
type Users interface {
	// ListUsers returns the users in a list, paginated by the given name (if
	// provided) up to the given limit of records.
	ListUsers(ctx context.Context, afterName string, limit int32) ([]db.User, error)
	// GetUser returns a single user with the specified ID. An [ErrNotFound] is
	// returned if the user ID does not exist.
	GetUser(ctx context.Context, userID uint64) (db.User, error)
	// GetUserByName returns a single user with the specified name. The match is
	// exact and case-sensitive. An [ErrNotFound] is returned if the user name
	// does not exist.
	GetUserByName(ctx context.Context, name string) (db.User, error)
	// UpsertUser creates or updates the user. This is a full PUT-style upsert.
	// An [ErrAlreadyExists] error is returned if the username is already in use.
	UpsertUser(ctx context.Context, user db.User) error
	// DeleteUser removes a user. Deleting an unknown user is not an error.
	DeleteUser(ctx context.Context, userID uint64) error
}

// AnimePage selects a window of animes for [Animes.ListAnimes].
type AnimePage struct {
	Offset  int64
	Limit   int64
	OrderBy db.AnimeColumn
	Desc    bool
}

// Animes are the methods on a storage implementation that are responsible for
// accessing and modifying animes.
type Animes interface {
	// ListAnimes returns one window of animes and the total number of animes.
	ListAnimes(ctx context.Context, page AnimePage) ([]db.Anime, int64, error)
	// ListAllAnimes returns every anime ordered by ID.
	ListAllAnimes(ctx context.Context) ([]db.Anime, error)
	// GetAnime returns the anime with the given ID. An [ErrNotFound] is
	// returned if it does not exist.
	GetAnime(ctx context.Context, id uint64) (db.Anime, error)
	// FindAnimesByName returns the animes whose name equals name exactly,
	// compared case-sensitively. An empty name matches nothing. The result is
	// never nil.
	FindAnimesByName(ctx context.Context, name string) ([]db.Anime, error)
	// CreateAnime assigns a new ID and persists the anime, returning the
	// stored value. Any ID on the input is ignored.
	CreateAnime(ctx context.Context, anime db.Anime) (db.Anime, error)
	// ReplaceAnime overwrites an existing anime. An [ErrNotFound] is returned
	// if the ID does not exist.
	ReplaceAnime(ctx context.Context, anime db.Anime) error
	// DeleteAnime removes an anime. An [ErrNotFound] is returned if the ID
	// does not exist.
	DeleteAnime(ctx context.Context, id uint64) error
}

// Store is the combination interface for [Animes] and [Users].
type Store interface {
	Animes
	Users
	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store. An error is returned if
	// the store cannot be cleanly closed.
	Close() error
}
