package driven

import (
	"context"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// SessionStore handles session persistence (Redis or PostgreSQL)
type SessionStore interface {
	// Save stores a session keyed by its opaque id
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID.
	// Returns domain.ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Touch bumps the session's LastSeenAt so an active browser keeps
	// its session alive across janitor sweeps.
	Touch(ctx context.Context, id string, seenAt time.Time) error

	// Delete deletes a session. Idempotent.
	Delete(ctx context.Context, id string) error

	// DeleteIdleBefore removes sessions whose LastSeenAt is older than
	// the cutoff and returns how many were deleted.
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
