package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// User is a row of the users table. It is the persisted credential record
// consulted on every authenticated request.
type User struct {
	ID           uint64 `db:"id"`
	Username     string `db:"username"`
	Name         string `db:"name"`
	PasswordHash []byte `db:"password_hash"`
	Roles        Roles  `db:"roles"`
}

// Anime is a row of the animes table.
type Anime struct {
	ID   uint64 `db:"id"   json:"id"`
	Name string `db:"name" json:"name"`
}

// Roles is a set of role tags persisted as a comma separated column.
type Roles []string

// Value satisfies [driver.Valuer].
func (r Roles) Value() (driver.Value, error) {
	return strings.Join(r, ","), nil
}

// Scan satisfies [sql.Scanner].
func (r *Roles) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Roles", src)
	}
	*r = SplitRoles(raw)
	return nil
}

// SplitRoles parses a comma separated role list, dropping blanks.
func SplitRoles(raw string) Roles {
	out := Roles{}
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
