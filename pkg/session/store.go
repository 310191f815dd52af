package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the session does not exist in the store.
	ErrNotFound = errors.New("session: not found")
	// ErrVersionConflict means a concurrent writer updated the session
	// between this writer's read and its update.
	ErrVersionConflict = errors.New("session: version conflict")
)

// Store persists sessions and per-user preferences.
//
// Update uses optimistic locking: it verifies the stored Version matches
// the caller's, increments it, and persists. A mismatch returns
// ErrVersionConflict and the caller must re-read and retry.
type Store interface {
	Create(ctx context.Context, s *Session) error

	// Get returns nil, nil when the session is not found.
	Get(ctx context.Context, id string) (*Session, error)

	Update(ctx context.Context, s *Session) error

	Delete(ctx context.Context, id string) error

	// GetPreferences returns nil, nil when the user has no saved
	// preferences.
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)

	SavePreferences(ctx context.Context, userID string, p *Preferences) error

	Close() error
}
