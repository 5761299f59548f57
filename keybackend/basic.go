package keybackend

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/sagarc03/packway"
)

const argon2idPrefix = "$argon2id$"

// hashParams follow the OWASP minimum for Argon2id.
var hashParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns an Argon2id hash of password in PHC format.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, hashParams)
}

// CredentialStore looks up the stored password for a user.
type CredentialStore interface {
	Lookup(username string) (string, error)
}

// BasicVerifier authenticates requests with HTTP basic authentication.
type BasicVerifier struct {
	store CredentialStore
}

func NewBasicVerifier(store CredentialStore) *BasicVerifier {
	return &BasicVerifier{store: store}
}

// Verify returns nil when r carries the credentials of a known user.
// All failures wrap packway.ErrUnauthorized.
func (v *BasicVerifier) Verify(r *http.Request) error {
	username, password, ok := r.BasicAuth()
	if !ok {
		return fmt.Errorf("verify: missing credentials: %w", packway.ErrUnauthorized)
	}

	stored, err := v.store.Lookup(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fmt.Errorf("verify: %w", packway.ErrUnauthorized)
		}
		return fmt.Errorf("verify: %w", err)
	}

	match, err := comparePassword(password, stored)
	if err != nil {
		return fmt.Errorf("verify %q: %w: %w", username, packway.ErrUnauthorized, err)
	}
	if !match {
		return fmt.Errorf("verify %q: wrong password: %w", username, packway.ErrUnauthorized)
	}

	return nil
}

func comparePassword(password, stored string) (match bool, err error) {
	if !strings.HasPrefix(stored, argon2idPrefix) {
		return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1, nil
	}

	// The argon2 package panics on hashes with zero rounds or parallelism.
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(password, stored)
}
