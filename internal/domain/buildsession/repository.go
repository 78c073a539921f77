package buildsession

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for build sessions. There is at most one
// record per session key.
type Repository interface {
	// FindByID retrieves the session for a key.
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)

	// Save persists a new session. A second save for the same key is a conflict.
	Save(ctx context.Context, s *Session) error

	// Update persists changes with optimistic locking on the previous version.
	Update(ctx context.Context, s *Session) error
}
