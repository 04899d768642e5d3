package sec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.Cost())

	h, err = NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, h.Cost())

	_, err = NewHasher(bcrypt.MinCost - 1)
	require.Error(t, err)

	_, err = NewHasher(bcrypt.MaxCost + 1)
	require.Error(t, err)

	assert.Equal(t, bcrypt.DefaultCost, Hasher{}.Cost())
}

func TestHasher_Hash(t *testing.T) {
	t.Parallel()

	h := testHasher(t)

	t.Run("salted", func(t *testing.T) {
		t.Parallel()
		first, err := h.Hash([]byte("mypassword"))
		require.NoError(t, err)
		second, err := h.Hash([]byte("mypassword"))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.NotContains(t, string(first), "mypassword")
	})

	t.Run("too long", func(t *testing.T) {
		t.Parallel()
		_, err := h.Hash([]byte(strings.Repeat("x", 73)))
		require.Error(t, err)
	})
}

func TestHasher_Verify(t *testing.T) {
	t.Parallel()

	h := testHasher(t)
	password := []byte("correctpassword")
	hash, err := h.Hash(password)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     []byte
		want     bool
		wantErr  error
	}{
		{name: "correct password", password: string(password), hash: hash, want: true},
		{name: "incorrect password", password: "wrongpassword", hash: hash},
		{name: "empty password", password: "", hash: hash},
		{name: "prefix of password", password: "correct", hash: hash},
		{name: "overlong password", password: strings.Repeat("a", 100), hash: hash},
		{name: "truncated hash", password: string(password), hash: hash[:10], wantErr: ErrMalformedHash},
		{name: "plaintext stored", password: string(password), hash: password, wantErr: ErrMalformedHash},
		{name: "empty hash", password: string(password), hash: nil, wantErr: ErrMalformedHash},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			ok, err := h.Verify([]byte(test.password), test.hash)
			if test.wantErr != nil {
				require.ErrorIs(t, err, test.wantErr)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, ok)
		})
	}

	t.Run("hash from another cost", func(t *testing.T) {
		t.Parallel()
		other, err := bcrypt.GenerateFromPassword(password, bcrypt.MinCost+1)
		require.NoError(t, err)
		ok, err := h.Verify(password, other)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func testHasher(t *testing.T) Hasher {
	t.Helper()
	h, err := NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}
