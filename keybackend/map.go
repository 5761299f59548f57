// Package keybackend stores the credentials used for HTTP basic
// authentication and verifies requests against them.
package keybackend

import (
	"fmt"
)

// MapCredentialStore retrieves passwords from an in-memory map.
// Suitable for configuration file-based credential storage.
type MapCredentialStore struct {
	users map[string]string
}

// NewMapCredentialStore creates a new map-based store with the given username to password mapping.
func NewMapCredentialStore(users map[string]string) *MapCredentialStore {
	return &MapCredentialStore{users: users}
}

// Lookup retrieves the stored password or password hash for username.
func (s *MapCredentialStore) Lookup(username string) (string, error) {
	password, found := s.users[username]
	if !found {
		return "", fmt.Errorf("lookup %q: %w", username, ErrUserNotFound)
	}
	return password, nil
}

// Len returns the number of users in the store.
func (s *MapCredentialStore) Len() int {
	return len(s.users)
}
