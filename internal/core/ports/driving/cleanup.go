package driving

import (
	"context"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// CleanupService sweeps expired authorization and session records.
type CleanupService interface {
	// Sweep deletes OAuth states past their TTL and sessions idle past
	// theirs, returning the deletion counts. Deletions are idempotent,
	// so concurrent sweeps are safe.
	Sweep(ctx context.Context) (*domain.CleanupReport, error)
}
