package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

// Ensure authFlowService implements AuthFlowService
var _ driving.AuthFlowService = (*authFlowService)(nil)

// AuthFlowServiceConfig holds configuration for the auth flow service.
type AuthFlowServiceConfig struct {
	// OAuthStateStore is the ledger of in-flight login attempts.
	OAuthStateStore driven.OAuthStateStore

	// SessionStore persists established sessions.
	SessionStore driven.SessionStore

	// Provider drives the external identity provider.
	Provider driven.IdentityProvider
}

// authFlowService implements the AuthFlowService interface.
type authFlowService struct {
	stateStore   driven.OAuthStateStore
	sessionStore driven.SessionStore
	provider     driven.IdentityProvider
}

// NewAuthFlowService creates a new auth flow service.
func NewAuthFlowService(cfg AuthFlowServiceConfig) driving.AuthFlowService {
	return &authFlowService{
		stateStore:   cfg.OAuthStateStore,
		sessionStore: cfg.SessionStore,
		provider:     cfg.Provider,
	}
}

// BeginLogin starts a popup OAuth authorization flow.
// It generates the state and PKCE pair, records the ledger entry, and
// returns the provider authorize URL.
func (s *authFlowService) BeginLogin(ctx context.Context, req driving.BeginLoginRequest) (*driving.BeginLoginResponse, error) {
	creds := req.Credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	// Generate state (CSRF protection)
	state, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	// Generate PKCE code verifier and challenge
	codeVerifier, err := generateRandomString(64)
	if err != nil {
		return nil, fmt.Errorf("generate code verifier: %w", err)
	}
	codeChallenge := generateCodeChallenge(codeVerifier)

	now := time.Now()
	oauthState := &driven.OAuthState{
		State:        state,
		CodeVerifier: codeVerifier,
		Environment:  req.Environment,
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		ReturnURL:    req.ReturnURL,
		CreatedAt:    now,
		ExpiresAt:    now.Add(driven.OAuthStateTTL),
	}

	if err := s.stateStore.Save(ctx, oauthState); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	authURL := s.provider.AuthorizeURL(creds, state, codeChallenge)

	return &driving.BeginLoginResponse{AuthURL: authURL}, nil
}

// CompleteCallback handles the redirect back from the identity provider.
// The state is consumed exactly once; a replayed or unknown state fails
// before any exchange happens.
func (s *authFlowService) CompleteCallback(ctx context.Context, req driving.CallbackRequest) (*domain.Session, error) {
	// Error relayed by the provider (user denied, bad scopes, ...)
	if req.Error != "" {
		return nil, &driving.OAuthError{
			Code:        req.Error,
			Description: req.ErrorDescription,
		}
	}

	// Validate and consume state (single-use)
	oauthState, err := s.stateStore.GetAndDelete(ctx, req.State)
	if err != nil {
		return nil, fmt.Errorf("get oauth state: %w", err)
	}
	if oauthState == nil {
		return nil, domain.ErrInvalidState
	}

	creds := &domain.OrgCredentials{
		ClientID:    oauthState.ClientID,
		RedirectURI: oauthState.RedirectURI,
		Environment: oauthState.Environment,
	}

	token, err := s.provider.Exchange(ctx, creds, req.Code, oauthState.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driving.ErrExchangeFailed, err)
	}

	user, err := s.provider.Identity(token)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               uuid.NewString(),
		UserID:           user.ID,
		UserName:         user.Name,
		UserEmail:        user.Email,
		InstanceURL:      token.InstanceURL,
		Environment:      oauthState.Environment,
		OrgCredentialsID: creds.ID(),
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		CreatedAt:        now,
		LastSeenAt:       now,
	}

	if err := s.sessionStore.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return session, nil
}

// Status answers the authoritative "am I logged in" question.
// A missing or idle-expired session is an unauthenticated status, not an
// error: the browser polls this endpoint and must never see a hard
// failure for simply not being logged in.
func (s *authFlowService) Status(ctx context.Context, sessionID string) (*domain.AuthStatus, error) {
	if sessionID == "" {
		return &domain.AuthStatus{Authenticated: false}, nil
	}

	session, err := s.sessionStore.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.AuthStatus{Authenticated: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	now := time.Now()
	if session.IdleExpired(now) {
		_ = s.sessionStore.Delete(ctx, session.ID)
		return &domain.AuthStatus{Authenticated: false}, nil
	}

	// Active browser keeps the session alive
	if err := s.sessionStore.Touch(ctx, session.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return domain.StatusFor(session), nil
}

// Refresh rotates the session's access token via the provider.
func (s *authFlowService) Refresh(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrSessionNotFound
	}

	session, err := s.sessionStore.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	if session.RefreshToken == "" {
		return domain.ErrNoRefreshToken
	}

	creds := &domain.OrgCredentials{
		ClientID:    session.OrgCredentialsID,
		RedirectURI: "", // not needed for refresh
		Environment: session.Environment,
	}

	token, err := s.provider.Refresh(ctx, creds, session.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}

	session.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		session.RefreshToken = token.RefreshToken
	}
	if token.InstanceURL != "" {
		session.InstanceURL = token.InstanceURL
	}
	session.LastSeenAt = time.Now()

	if err := s.sessionStore.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// Logout destroys the session. Already-gone sessions are fine.
func (s *authFlowService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := s.sessionStore.Delete(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// generateRandomString generates a cryptographically secure random string.
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// generateCodeChallenge creates a PKCE code challenge from a verifier (S256 method).
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
