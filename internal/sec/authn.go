package sec

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"connectrpc.com/authn"

	"github.com/stolasapp/animes/internal/storage"
	"github.com/stolasapp/animes/internal/storage/db"
)

var (
	// ErrPrincipalNotFound is returned by [Provider.LoadPrincipal] when no
	// credential record has the username. It never reaches clients.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrAuthFailure is the only failure clients see for bad credentials,
	// whether the username is unknown or the password is wrong.
	ErrAuthFailure = authn.Errorf("invalid username or password")
)

// Credentials is the subset of [storage.Users] the [Provider] reads.
type Credentials interface {
	GetUserByName(ctx context.Context, name string) (db.User, error)
}

// Provider resolves principals from the credential store and checks their
// passwords.
type Provider struct {
	store  Credentials
	hasher Hasher
	decoy  []byte
}

// NewProvider creates a Provider reading from store and verifying with hasher.
// It precomputes a decoy hash at the hasher's cost, so construction takes one
// bcrypt computation.
func NewProvider(store Credentials, hasher Hasher) (*Provider, error) {
	secret := make([]byte, 32) //nolint:mnd // well under the bcrypt limit
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate decoy password: %w", err)
	}
	decoy, err := hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to hash decoy password: %w", err)
	}
	return &Provider{
		store:  store,
		hasher: hasher,
		decoy:  decoy,
	}, nil
}

// LoadPrincipal fetches the credential record for username. The match is
// exact and case-sensitive. [ErrPrincipalNotFound] is returned if there is
// no such record.
func (p *Provider) LoadPrincipal(ctx context.Context, username string) (Principal, error) {
	user, err := p.store.GetUserByName(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return Principal{}, ErrPrincipalNotFound
	} else if err != nil {
		return Principal{}, fmt.Errorf("failed to load principal: %w", err)
	}
	return NewPrincipal(user), nil
}

// Authenticate loads the principal for username and verifies password against
// its hash. Unknown usernames and wrong passwords both return [ErrAuthFailure];
// unknown usernames still pay for one bcrypt comparison against a decoy hash
// so the two cases cost about the same. The decoy uses the hasher's cost, so
// a stored hash made at a different cost (for example before bcrypt_cost was
// changed) still times differently from an unknown username until that
// password is set again. A malformed stored hash returns an error wrapping
// [ErrMalformedHash].
func (p *Provider) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	principal, err := p.LoadPrincipal(ctx, username)
	if errors.Is(err, ErrPrincipalNotFound) {
		_, _ = p.hasher.Verify([]byte(password), p.decoy)
		return Principal{}, ErrAuthFailure
	} else if err != nil {
		return Principal{}, err
	}

	ok, err := p.hasher.Verify([]byte(password), principal.PasswordHash)
	if err != nil {
		return Principal{}, fmt.Errorf("user %q: %w", username, err)
	} else if !ok {
		return Principal{}, ErrAuthFailure
	}
	return principal, nil
}
