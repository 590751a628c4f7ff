package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

// mockOAuthStateStore implements driven.OAuthStateStore for testing
type mockOAuthStateStore struct {
	states map[string]*driven.OAuthState
}

func newMockOAuthStateStore() *mockOAuthStateStore {
	return &mockOAuthStateStore{states: make(map[string]*driven.OAuthState)}
}

func (m *mockOAuthStateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	m.states[state.State] = state
	return nil
}

func (m *mockOAuthStateStore) GetAndDelete(ctx context.Context, state string) (*driven.OAuthState, error) {
	s, ok := m.states[state]
	if !ok {
		return nil, nil
	}
	delete(m.states, state)
	if time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return s, nil
}

func (m *mockOAuthStateStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for k, v := range m.states {
		if v.CreatedAt.Before(cutoff) {
			delete(m.states, k)
			n++
		}
	}
	return n, nil
}

// mockSessionStore implements driven.SessionStore for testing
type mockSessionStore struct {
	sessions map[string]*domain.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockSessionStore) Save(ctx context.Context, session *domain.Session) error {
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *mockSessionStore) Touch(ctx context.Context, id string, seenAt time.Time) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastSeenAt = seenAt
	return nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionStore) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for k, v := range m.sessions {
		if v.LastSeenAt.Before(cutoff) {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

// mockProvider implements driven.IdentityProvider for testing
type mockProvider struct {
	authURLBase  string
	exchangeErr  error
	refreshedTo  string
	lastExchange struct {
		code     string
		verifier string
	}
}

func newMockProvider() *mockProvider {
	return &mockProvider{authURLBase: "https://test.salesforce.com/services/oauth2/authorize"}
}

func (m *mockProvider) AuthorizeURL(creds *domain.OrgCredentials, state, codeChallenge string) string {
	return m.authURLBase + "?client_id=" + creds.ClientID + "&state=" + state + "&code_challenge=" + codeChallenge
}

func (m *mockProvider) Exchange(ctx context.Context, creds *domain.OrgCredentials, code, codeVerifier string) (*driven.ProviderToken, error) {
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	m.lastExchange.code = code
	m.lastExchange.verifier = codeVerifier
	return &driven.ProviderToken{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		IDToken:      "id-1",
		TokenType:    "Bearer",
		InstanceURL:  "https://acme.my.salesforce.com",
	}, nil
}

func (m *mockProvider) Refresh(ctx context.Context, creds *domain.OrgCredentials, refreshToken string) (*driven.ProviderToken, error) {
	if m.refreshedTo == "" {
		m.refreshedTo = "access-2"
	}
	return &driven.ProviderToken{AccessToken: m.refreshedTo, TokenType: "Bearer"}, nil
}

func (m *mockProvider) Identity(token *driven.ProviderToken) (*domain.UserInfo, error) {
	return &domain.UserInfo{ID: "user-1", Name: "Ada Lovelace", Email: "ada@acme.example"}, nil
}

func newTestService() (driving.AuthFlowService, *mockOAuthStateStore, *mockSessionStore, *mockProvider) {
	states := newMockOAuthStateStore()
	sessions := newMockSessionStore()
	provider := newMockProvider()
	svc := NewAuthFlowService(AuthFlowServiceConfig{
		OAuthStateStore: states,
		SessionStore:    sessions,
		Provider:        provider,
	})
	return svc, states, sessions, provider
}

func validLoginRequest() driving.BeginLoginRequest {
	return driving.BeginLoginRequest{
		ClientID:    "3MVG9abc",
		RedirectURI: "https://app.example.com/api/auth/callback",
		Environment: domain.EnvironmentSandbox,
		ReturnURL:   "/",
		Popup:       true,
	}
}

func TestBeginLogin_MintsStateAndChallenge(t *testing.T) {
	svc, states, _, _ := newTestService()

	resp, err := svc.BeginLogin(context.Background(), validLoginRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AuthURL == "" {
		t.Fatal("expected an auth url")
	}

	if len(states.states) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(states.states))
	}
	for _, st := range states.states {
		if st.CodeVerifier == "" {
			t.Error("expected a code verifier")
		}
		if st.Environment != domain.EnvironmentSandbox {
			t.Errorf("expected sandbox environment, got %s", st.Environment)
		}
		if st.ClientID != "3MVG9abc" {
			t.Errorf("unexpected client id %s", st.ClientID)
		}
		if got := st.ExpiresAt.Sub(st.CreatedAt); got != driven.OAuthStateTTL {
			t.Errorf("expected ttl %v, got %v", driven.OAuthStateTTL, got)
		}
	}
}

func TestBeginLogin_InvalidInput(t *testing.T) {
	svc, _, _, _ := newTestService()

	req := validLoginRequest()
	req.ClientID = ""

	_, err := svc.BeginLogin(context.Background(), req)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCompleteCallback_EstablishesSession(t *testing.T) {
	svc, states, sessions, provider := newTestService()

	_, err := svc.BeginLogin(context.Background(), validLoginRequest())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	var stateToken string
	for k := range states.states {
		stateToken = k
	}

	session, err := svc.CompleteCallback(context.Background(), driving.CallbackRequest{
		Code:  "code-123",
		State: stateToken,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.UserID != "user-1" {
		t.Errorf("unexpected user id %s", session.UserID)
	}
	if session.InstanceURL != "https://acme.my.salesforce.com" {
		t.Errorf("unexpected instance url %s", session.InstanceURL)
	}
	if session.OrgCredentialsID != "3MVG9abc" {
		t.Errorf("unexpected org credentials id %s", session.OrgCredentialsID)
	}
	if provider.lastExchange.code != "code-123" {
		t.Errorf("exchange used code %s", provider.lastExchange.code)
	}
	if provider.lastExchange.verifier == "" {
		t.Error("exchange missing pkce verifier")
	}
	if _, ok := sessions.sessions[session.ID]; !ok {
		t.Error("session not persisted")
	}
}

func TestCompleteCallback_StateIsSingleUse(t *testing.T) {
	svc, states, _, _ := newTestService()

	_, err := svc.BeginLogin(context.Background(), validLoginRequest())
	if err != nil {
		t.Fatalf("begin login: %v", err)
	}

	var stateToken string
	for k := range states.states {
		stateToken = k
	}

	req := driving.CallbackRequest{Code: "code-123", State: stateToken}
	if _, err := svc.CompleteCallback(context.Background(), req); err != nil {
		t.Fatalf("first callback: %v", err)
	}

	// Replay must be rejected: the ledger entry was consumed
	_, err = svc.CompleteCallback(context.Background(), req)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState on replay, got %v", err)
	}
}

func TestCompleteCallback_UnknownState(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CompleteCallback(context.Background(), driving.CallbackRequest{
		Code:  "code-123",
		State: "never-minted",
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCompleteCallback_ProviderError(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CompleteCallback(context.Background(), driving.CallbackRequest{
		Error:            "access_denied",
		ErrorDescription: "user denied access",
	})

	var oauthErr *driving.OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if oauthErr.Code != "access_denied" {
		t.Errorf("unexpected code %s", oauthErr.Code)
	}
}

func TestStatus_UnknownSessionIsUnauthenticated(t *testing.T) {
	svc, _, _, _ := newTestService()

	status, err := svc.Status(context.Background(), "no-such-session")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Authenticated {
		t.Error("expected unauthenticated status")
	}
}

func TestStatus_TouchesLastSeen(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	stale := time.Now().Add(-1 * time.Hour)
	sessions.sessions["sess-1"] = &domain.Session{
		ID:          "sess-1",
		UserID:      "user-1",
		InstanceURL: "https://acme.my.salesforce.com",
		Environment: domain.EnvironmentProduction,
		LastSeenAt:  stale,
	}

	status, err := svc.Status(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Authenticated {
		t.Fatal("expected authenticated status")
	}
	if !sessions.sessions["sess-1"].LastSeenAt.After(stale) {
		t.Error("expected LastSeenAt to be bumped")
	}
}

func TestStatus_IdleExpiredSessionIsRemoved(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	sessions.sessions["sess-1"] = &domain.Session{
		ID:         "sess-1",
		UserID:     "user-1",
		LastSeenAt: time.Now().Add(-domain.SessionIdleTTL - time.Minute),
	}

	status, err := svc.Status(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Authenticated {
		t.Error("expected unauthenticated status for idle session")
	}
	if _, ok := sessions.sessions["sess-1"]; ok {
		t.Error("expected idle session to be deleted")
	}
}

func TestRefresh_RotatesAccessToken(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	sessions.sessions["sess-1"] = &domain.Session{
		ID:           "sess-1",
		UserID:       "user-1",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Environment:  domain.EnvironmentProduction,
		LastSeenAt:   time.Now(),
	}

	if err := svc.Refresh(context.Background(), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessions.sessions["sess-1"].AccessToken != "access-2" {
		t.Errorf("expected rotated access token, got %s", sessions.sessions["sess-1"].AccessToken)
	}
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	sessions.sessions["sess-1"] = &domain.Session{
		ID:         "sess-1",
		LastSeenAt: time.Now(),
	}

	err := svc.Refresh(context.Background(), "sess-1")
	if !errors.Is(err, domain.ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	svc, _, sessions, _ := newTestService()

	sessions.sessions["sess-1"] = &domain.Session{ID: "sess-1", LastSeenAt: time.Now()}

	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty session logout: %v", err)
	}
}
