// Package repository keeps dashboard sessions in memory.
package repository

import (
	"context"

	"github.com/okian/quickshop/internal/domain/session"
)

// Store provides access to session state. Sessions are stored by pointer
// and never modified in place; Put replaces the stored value.
type Store interface {
	// Create adds a new session, evicting the least recently used one
	// when the store is full. Returns ErrExists on an ID collision.
	Create(ctx context.Context, s *session.Session) error

	// Get returns the session and marks it as used.
	// Returns ErrNotFound if the session is unknown or was evicted.
	Get(ctx context.Context, id string) (*session.Session, error)

	// Put replaces an existing session.
	// Returns ErrNotFound if the session is unknown or was evicted.
	Put(ctx context.Context, s *session.Session) error

	// Delete removes a session. Returns ErrNotFound if it is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}
