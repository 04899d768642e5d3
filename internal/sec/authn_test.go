package sec

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stolasapp/animes/internal/storage"
	"github.com/stolasapp/animes/internal/storage/db"
)

type memCredentials map[string]db.User

func (m memCredentials) GetUserByName(_ context.Context, name string) (db.User, error) {
	if user, ok := m[name]; ok {
		return user, nil
	}
	return db.User{}, storage.ErrNotFound
}

type brokenCredentials struct{}

func (brokenCredentials) GetUserByName(context.Context, string) (db.User, error) {
	return db.User{}, errors.New("disk on fire")
}

func testCredentials(t *testing.T, h Hasher) memCredentials {
	t.Helper()
	adminHash, err := h.Hash([]byte("springessentials2"))
	require.NoError(t, err)
	userHash, err := h.Hash([]byte("test2"))
	require.NoError(t, err)
	return memCredentials{
		"vinicius": {
			ID:           1,
			Username:     "vinicius",
			Name:         "Vinicius main",
			PasswordHash: adminHash,
			Roles:        db.Roles{"ROLE_ADMIN", "ROLE_USER"},
		},
		"vinicius_test": {
			ID:           2,
			Username:     "vinicius_test",
			Name:         "Vinicius test",
			PasswordHash: userHash,
			Roles:        db.Roles{"USER"},
		},
		"broken": {
			ID:           3,
			Username:     "broken",
			PasswordHash: []byte("plaintext"),
			Roles:        db.Roles{"USER"},
		},
	}
}

func TestNewPrincipal(t *testing.T) {
	t.Parallel()

	principal := NewPrincipal(db.User{
		ID:           7,
		Username:     "someone",
		Name:         "Some One",
		PasswordHash: []byte("hash"),
		Roles:        db.Roles{"USER", "ROLE_ADMIN", " USER ", ""},
	})
	assert.Equal(t, Principal{
		ID:           7,
		Username:     "someone",
		Name:         "Some One",
		PasswordHash: []byte("hash"),
		Roles:        []Role{RoleAdmin, RoleUser},
	}, principal)
	assert.True(t, principal.HasRole(RoleAdmin))
	assert.True(t, principal.HasRole(RoleUser))
	assert.False(t, principal.HasRole("user"), "roles are case-sensitive")
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	_, ok := GetPrincipal(t.Context())
	assert.False(t, ok)

	want := Principal{Username: "vinicius", Roles: []Role{RoleAdmin}}
	got, ok := GetPrincipal(SetPrincipal(t.Context(), want))
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestProvider_LoadPrincipal(t *testing.T) {
	t.Parallel()

	h := testHasher(t)
	provider, err := NewProvider(testCredentials(t, h), h)
	require.NoError(t, err)

	principal, err := provider.LoadPrincipal(t.Context(), "vinicius")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), principal.ID)
	assert.Equal(t, []Role{RoleAdmin, RoleUser}, principal.Roles)
	assert.NotEmpty(t, principal.PasswordHash)

	_, err = provider.LoadPrincipal(t.Context(), "VINICIUS")
	require.ErrorIs(t, err, ErrPrincipalNotFound)

	_, err = provider.LoadPrincipal(t.Context(), "unknown")
	require.ErrorIs(t, err, ErrPrincipalNotFound)

	broken, err := NewProvider(brokenCredentials{}, h)
	require.NoError(t, err)
	_, err = broken.LoadPrincipal(t.Context(), "vinicius")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPrincipalNotFound)
}

func TestProvider_Authenticate(t *testing.T) {
	t.Parallel()

	h := testHasher(t)
	provider, err := NewProvider(testCredentials(t, h), h)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantUser string
		wantErr  error
	}{
		{name: "admin", username: "vinicius", password: "springessentials2", wantUser: "vinicius"},
		{name: "user", username: "vinicius_test", password: "test2", wantUser: "vinicius_test"},
		{name: "wrong password", username: "vinicius", password: "test2", wantErr: ErrAuthFailure},
		{name: "unknown user", username: "nobody", password: "test2", wantErr: ErrAuthFailure},
		{name: "wrong case username", username: "Vinicius", password: "springessentials2", wantErr: ErrAuthFailure},
		{name: "empty credentials", wantErr: ErrAuthFailure},
		{name: "malformed stored hash", username: "broken", password: "plaintext", wantErr: ErrMalformedHash},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			principal, err := provider.Authenticate(t.Context(), test.username, test.password)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				assert.Zero(t, principal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.wantUser, principal.Username)
		})
	}
}

func TestProvider_Authenticate_Indistinguishable(t *testing.T) {
	t.Parallel()

	h := testHasher(t)
	provider, err := NewProvider(testCredentials(t, h), h)
	require.NoError(t, err)

	_, unknownErr := provider.Authenticate(t.Context(), "nobody", "whatever")
	_, wrongErr := provider.Authenticate(t.Context(), "vinicius", "whatever")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(unknownErr))
	assert.Equal(t, connect.CodeOf(unknownErr), connect.CodeOf(wrongErr))
}

func TestNewProvider_DecoyCost(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(bcrypt.MinCost + 1)
	require.NoError(t, err)
	provider, err := NewProvider(memCredentials{}, h)
	require.NoError(t, err)

	cost, err := bcrypt.Cost(provider.decoy)
	require.NoError(t, err)
	assert.Equal(t, h.Cost(), cost, "unknown usernames pay the configured cost")
}
