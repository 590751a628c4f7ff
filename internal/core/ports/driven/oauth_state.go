package driven

import (
	"context"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// OAuthStateTTL is how long a minted login attempt stays valid. A login
// that drags on past this fails at callback state validation.
const OAuthStateTTL = 10 * time.Minute

// OAuthState is the short-lived ledger entry for one in-flight login
// attempt. It correlates the callback with its PKCE verifier and carries
// the anti-replay token.
type OAuthState struct {
	// State is a cryptographically random string used for CSRF protection.
	State string

	// CodeVerifier is the PKCE code verifier (plain text, not hashed).
	// Its S256 hash goes out as code_challenge on the authorize URL and
	// the verifier itself is sent during token exchange.
	CodeVerifier string

	// Environment is the org environment this attempt targets.
	Environment domain.Environment

	// ClientID and RedirectURI echo the org credentials used to mint
	// the attempt, so the callback can complete the exchange.
	ClientID    string
	RedirectURI string

	// ReturnURL is where the dashboard wants to land after login.
	ReturnURL string

	// CreatedAt is when the state was minted.
	CreatedAt time.Time

	// ExpiresAt is when the state expires (CreatedAt + OAuthStateTTL).
	ExpiresAt time.Time
}

// OAuthStateStore is the ledger of in-flight login attempts.
// Entries are single-use: consumed exactly once at callback or swept
// by the janitor.
type OAuthStateStore interface {
	// Save stores a new OAuth state.
	Save(ctx context.Context, state *OAuthState) error

	// GetAndDelete atomically retrieves and deletes the state.
	// This enforces single-use semantics; a replayed callback sees nil.
	// Returns nil, nil if the state doesn't exist or has expired.
	GetAndDelete(ctx context.Context, state string) (*OAuthState, error)

	// Cleanup removes states created before the cutoff and returns how
	// many were deleted. Safe to invoke repeatedly and concurrently.
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}
