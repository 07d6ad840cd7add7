// Package session holds the authenticated identity and bearer token and
// persists them to durable local storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jefrnc/stratlab/internal/models"
)

// Well-known storage keys.
const (
	KeyToken = "access_token"
	KeyUser  = "user"
)

// ErrNotFound is returned by a Storage when a key has no value.
var ErrNotFound = errors.New("session: key not found")

// Storage is a durable string key/value store.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store is the single writer of the session. Reads are safe from any goroutine.
type Store struct {
	storage Storage

	mu      sync.RWMutex
	current *models.Session
}

// NewStore creates a store over the given storage. Call Load to restore a
// previously persisted session.
func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Load restores the persisted session, if any. A half-written or unreadable
// session is discarded rather than returned.
func (s *Store) Load() error {
	token, err := s.storage.Get(KeyToken)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	rawUser, err := s.storage.Get(KeyUser)
	if errors.Is(err, ErrNotFound) || token == "" {
		return s.Clear()
	}
	if err != nil {
		return fmt.Errorf("reading user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return s.Clear()
	}

	s.mu.Lock()
	s.current = &models.Session{User: user, Token: token}
	s.mu.Unlock()
	return nil
}

// Save persists a new session, replacing any previous one.
func (s *Store) Save(sess models.Session) error {
	if sess.Token == "" {
		return errors.New("session: empty token")
	}
	rawUser, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := s.storage.Set(KeyToken, sess.Token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	if err := s.storage.Set(KeyUser, string(rawUser)); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return nil
}

// Clear destroys the session in memory and in storage.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	var errs []error
	for _, key := range []string{KeyToken, KeyUser} {
		if err := s.storage.Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Invalidate clears the session after the backend rejected the token.
// Storage errors are dropped; the in-memory session is gone either way.
func (s *Store) Invalidate() {
	_ = s.Clear()
}

// Token returns the bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// User returns a copy of the logged-in user.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.User{}, false
	}
	return s.current.User, true
}

// Authenticated reports whether a session exists.
func (s *Store) Authenticated() bool {
	return s.Token() != ""
}

// IsAdmin reports whether the logged-in user has the admin role.
func (s *Store) IsAdmin() bool {
	u, ok := s.User()
	return ok && u.Role == models.RoleAdmin
}
