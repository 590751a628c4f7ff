package orchestrator

import (
	"context"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

// Message is a cross-window signal posted by the callback page
type Message struct {
	Type  string
	Error string
}

// Message types the callback page posts to its opener
const (
	MessageTypeSuccess = "oauth_success"
	MessageTypeError   = "oauth_error"
)

// Popup is a handle to the secondary login window. The only contract
// the window honors is that it will eventually post a message or close.
type Popup interface {
	// Closed reports whether the window is gone
	Closed() bool

	// Close closes the window. Safe to call on an already-closed popup.
	Close()
}

// PopupLauncher opens the secondary login window. A nil popup without
// an error means the host environment suppressed the window.
type PopupLauncher interface {
	Open(url string, width, height int) (Popup, error)
}

// Signals delivers the host environment's cross-window events: messages
// posted to this window and focus regains.
type Signals interface {
	Messages() <-chan Message
	Focus() <-chan struct{}
}

// StatusChecker answers the authoritative logged-in question
type StatusChecker interface {
	Status(ctx context.Context) (*domain.AuthStatus, error)
}

// LoginStarter mints a login attempt on the server
type LoginStarter interface {
	BeginLogin(ctx context.Context, req driving.BeginLoginRequest) (*driving.BeginLoginResponse, error)
}

// CredentialSource provides the org's stored OAuth client parameters
type CredentialSource interface {
	Get() *domain.OrgCredentials
}
