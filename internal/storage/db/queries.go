package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Queries holds the hand-written statements for the schema in migrations.
type Queries struct {
	db sqlx.ExtContext
}

// New returns Queries executing against db, which may be a *sqlx.DB or *sqlx.Tx.
func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

// GetUsersParams are the arguments for [Queries.GetUsers].
type GetUsersParams struct {
	AfterName string
	Limit     int64
}

// GetUsers returns users ordered by username, starting after AfterName.
func (q *Queries) GetUsers(ctx context.Context, arg GetUsersParams) ([]User, error) {
	const query = `SELECT id, username, name, password_hash, roles FROM users
		WHERE username > ? ORDER BY username LIMIT ?`
	var out []User
	err := sqlx.SelectContext(ctx, q.db, &out, query, arg.AfterName, arg.Limit)
	return out, err
}

// GetUser returns the user with the given ID.
func (q *Queries) GetUser(ctx context.Context, id uint64) (User, error) {
	const query = `SELECT id, username, name, password_hash, roles FROM users WHERE id = ?`
	var out User
	err := sqlx.GetContext(ctx, q.db, &out, query, id)
	return out, err
}

// GetUserByName returns the user with the given username. The comparison is
// case-sensitive.
func (q *Queries) GetUserByName(ctx context.Context, username string) (User, error) {
	const query = `SELECT id, username, name, password_hash, roles FROM users WHERE username = ?`
	var out User
	err := sqlx.GetContext(ctx, q.db, &out, query, username)
	return out, err
}

// UpsertUser inserts or fully replaces the user keyed by ID. If the username
// belongs to a different ID, nothing is written and sql.ErrNoRows is returned.
func (q *Queries) UpsertUser(ctx context.Context, arg User) (uint64, error) {
	const query = `INSERT INTO users (id, username, name, password_hash, roles)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			password_hash = excluded.password_hash,
			roles = excluded.roles
		ON CONFLICT DO NOTHING
		RETURNING id`
	var id uint64
	err := sqlx.GetContext(ctx, q.db, &id, query, arg.ID, arg.Username, arg.Name, arg.PasswordHash, arg.Roles)
	return id, err
}

// DeleteUser removes the user with the given ID.
func (q *Queries) DeleteUser(ctx context.Context, id uint64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

// AnimeColumn is a sortable column of the animes table.
type AnimeColumn string

// Sortable anime columns.
const (
	AnimeColumnID   AnimeColumn = "id"
	AnimeColumnName AnimeColumn = "name"
)

// GetAnimesParams are the arguments for [Queries.GetAnimes].
type GetAnimesParams struct {
	OrderBy AnimeColumn
	Desc    bool
	Offset  int64
	Limit   int64
}

// GetAnimes returns a window of animes in the requested order. Ties are broken
// by ID so windows are stable.
func (q *Queries) GetAnimes(ctx context.Context, arg GetAnimesParams) ([]Anime, error) {
	var order string
	switch arg.OrderBy {
	case "", AnimeColumnID:
		order = "id"
	case AnimeColumnName:
		order = "name"
	default:
		return nil, fmt.Errorf("unsortable anime column %q", arg.OrderBy)
	}
	if arg.Desc {
		order += " DESC"
	}
	if arg.OrderBy == AnimeColumnName {
		order += ", id"
	}
	query := `SELECT id, name FROM animes ORDER BY ` + order + ` LIMIT ? OFFSET ?`
	var out []Anime
	err := sqlx.SelectContext(ctx, q.db, &out, query, arg.Limit, arg.Offset)
	return out, err
}

// CountAnimes returns the number of animes.
func (q *Queries) CountAnimes(ctx context.Context) (int64, error) {
	var n int64
	err := sqlx.GetContext(ctx, q.db, &n, `SELECT count(*) FROM animes`)
	return n, err
}

// GetAllAnimes returns every anime ordered by ID.
func (q *Queries) GetAllAnimes(ctx context.Context) ([]Anime, error) {
	var out []Anime
	err := sqlx.SelectContext(ctx, q.db, &out, `SELECT id, name FROM animes ORDER BY id`)
	return out, err
}

// GetAnime returns the anime with the given ID.
func (q *Queries) GetAnime(ctx context.Context, id uint64) (Anime, error) {
	var out Anime
	err := sqlx.GetContext(ctx, q.db, &out, `SELECT id, name FROM animes WHERE id = ?`, id)
	return out, err
}

// GetAnimesByName returns the animes whose name equals name exactly.
func (q *Queries) GetAnimesByName(ctx context.Context, name string) ([]Anime, error) {
	var out []Anime
	err := sqlx.SelectContext(ctx, q.db, &out, `SELECT id, name FROM animes WHERE name = ? ORDER BY id`, name)
	return out, err
}

// InsertAnime creates a new anime row.
func (q *Queries) InsertAnime(ctx context.Context, arg Anime) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO animes (id, name) VALUES (?, ?)`, arg.ID, arg.Name)
	return err
}

// UpdateAnime replaces the name of an existing anime and reports the number of
// affected rows.
func (q *Queries) UpdateAnime(ctx context.Context, arg Anime) (int64, error) {
	res, err := q.db.ExecContext(ctx, `UPDATE animes SET name = ? WHERE id = ?`, arg.Name, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAnime removes an anime and reports the number of affected rows.
func (q *Queries) DeleteAnime(ctx context.Context, id uint64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM animes WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
