package sec

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMalformedHash is returned when a stored hash cannot be interpreted as a
// bcrypt hash. It indicates broken provisioning, not bad credentials.
var ErrMalformedHash = errors.New("malformed password hash")

// Hasher hashes and verifies passwords with bcrypt. The zero value uses
// [bcrypt.DefaultCost].
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost. A cost of zero
// selects [bcrypt.DefaultCost].
func NewHasher(cost int) (Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return Hasher{}, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return Hasher{cost: cost}, nil
}

// Cost returns the bcrypt cost used for new hashes.
func (h Hasher) Cost() int {
	if h.cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.cost
}

// Hash generates the salted hash for a given password. It errors if the
// password is longer than 72 bytes.
func (h Hasher) Hash(password []byte) ([]byte, error) {
	return bcrypt.GenerateFromPassword(password, h.Cost())
}

// Verify reports whether password resolves to hash. The comparison is
// constant-time. A mismatch is (false, nil); a hash that is not a valid bcrypt
// hash returns an error wrapping [ErrMalformedHash].
func (h Hasher) Verify(password, hash []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, password)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
}
