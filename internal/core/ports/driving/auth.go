package driving

import (
	"context"
	"errors"
	"fmt"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// BeginLoginRequest carries the org's public client parameters for
// minting a login attempt. Popup records whether the browser will
// complete the flow in a secondary window.
type BeginLoginRequest struct {
	ClientID    string             `json:"clientId"`
	RedirectURI string             `json:"redirectUri"`
	Environment domain.Environment `json:"environment"`
	ReturnURL   string             `json:"returnUrl,omitempty"`
	Popup       bool               `json:"popup"`
}

// Credentials rebuilds the org credential view of the request
func (r *BeginLoginRequest) Credentials() *domain.OrgCredentials {
	return &domain.OrgCredentials{
		ClientID:    r.ClientID,
		RedirectURI: r.RedirectURI,
		Environment: r.Environment,
	}
}

// BeginLoginResponse returns the provider authorize URL the popup
// should navigate to.
type BeginLoginResponse struct {
	AuthURL string `json:"authUrl"`
}

// CallbackRequest carries the query parameters the identity provider
// redirects back with.
type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// OAuthError represents an error relayed from the identity provider
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// Service-level errors
var (
	// ErrExchangeFailed indicates the code-for-token exchange failed
	ErrExchangeFailed = errors.New("token exchange failed")
)

// AuthFlowService owns the server side of the popup OAuth/PKCE flow:
// minting login attempts, consuming callbacks, and answering the
// authoritative status question.
type AuthFlowService interface {
	// BeginLogin mints a fresh OAuthState (including the PKCE pair) and
	// returns the authorize URL for the popup.
	BeginLogin(ctx context.Context, req BeginLoginRequest) (*BeginLoginResponse, error)

	// CompleteCallback validates and consumes the state, exchanges the
	// code, and establishes a session. Returns domain.ErrInvalidState
	// for unknown, expired, or replayed states.
	CompleteCallback(ctx context.Context, req CallbackRequest) (*domain.Session, error)

	// Status is the authoritative source of truth for a browser's
	// authentication state. Missing or idle-expired sessions yield an
	// unauthenticated status, never an error.
	Status(ctx context.Context, sessionID string) (*domain.AuthStatus, error)

	// Refresh rotates the session's access token using the server-held
	// refresh token.
	Refresh(ctx context.Context, sessionID string) error

	// Logout destroys the session. Idempotent.
	Logout(ctx context.Context, sessionID string) error
}
