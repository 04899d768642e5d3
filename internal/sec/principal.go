package sec

import (
	"context"
	"slices"
	"strings"

	"connectrpc.com/authn"

	"github.com/stolasapp/animes/internal/storage/db"
)

// Role is a coarse-grained permission tag checked by the [Policy].
type Role string

// Well-known roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// legacyRolePrefix is accepted on stored roles for records provisioned with
// authority-style names such as ROLE_ADMIN.
const legacyRolePrefix = "ROLE_"

// ParseRole normalizes a stored role tag. Surrounding whitespace and the
// legacy ROLE_ prefix are removed; the tag is otherwise case-sensitive.
func ParseRole(raw string) Role {
	return Role(strings.TrimPrefix(strings.TrimSpace(raw), legacyRolePrefix))
}

// Principal is the resolved identity of an authenticated caller. It is
// immutable once built by the [Provider].
type Principal struct {
	ID           uint64
	Username     string
	Name         string
	PasswordHash []byte `json:"-"`
	Roles        []Role
}

// NewPrincipal builds a Principal from a stored credential record. Roles are
// normalized, deduplicated, and sorted.
func NewPrincipal(user db.User) Principal {
	roles := make([]Role, 0, len(user.Roles))
	for _, raw := range user.Roles {
		if role := ParseRole(raw); role != "" {
			roles = append(roles, role)
		}
	}
	slices.Sort(roles)
	return Principal{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		Roles:        slices.Compact(roles),
	}
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// GetPrincipal returns the principal authenticated for the request, if any.
// Requests to public paths without credentials have no principal.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	principal, ok := authn.GetInfo(ctx).(Principal)
	return principal, ok
}

// SetPrincipal attaches the principal to ctx. The [Gate] injects it
// automatically; this function is also a convenience for testing.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return authn.SetInfo(ctx, principal)
}
