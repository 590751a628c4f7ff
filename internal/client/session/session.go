// Package session owns the client's view of authentication: one struct
// with an explicit lifecycle, synchronized from the server's status
// endpoint, with the persisted environment and org selections layered
// on top.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/orgscope-labs/orgscope-core/internal/client/credstore"
	"github.com/orgscope-labs/orgscope-core/internal/client/orchestrator"
	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// ErrAuthenticated means the setting cannot change while logged in
var ErrAuthenticated = errors.New("setting cannot be changed while logged in")

// API is the slice of the server client the session state needs
type API interface {
	Status(ctx context.Context) (*domain.AuthStatus, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

// LoginRunner runs one popup login attempt to its terminal outcome
type LoginRunner interface {
	Login(ctx context.Context, env domain.Environment) (*orchestrator.Result, error)
}

// Snapshot is a point-in-time copy of the session state
type Snapshot struct {
	Authenticated    bool
	User             *domain.UserInfo
	Environment      domain.Environment
	SelectedOrgID    string
	InstanceURL      string
	OrgCredentialsID string
	LastError        string
	RefreshKey       uint64
}

// State is the single owner of the client's authentication state. All
// mutation goes through its methods; readers take snapshots.
type State struct {
	creds  *credstore.CredentialStore
	api    API
	login  LoginRunner
	logger *slog.Logger
	cache  *Cache

	mu   sync.Mutex
	snap Snapshot
}

// NewState creates a State. Call Init before reading from it.
func NewState(creds *credstore.CredentialStore, api API, login LoginRunner, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		creds:  creds,
		api:    api,
		login:  login,
		logger: logger,
		cache:  NewCache(),
		snap: Snapshot{
			Environment: domain.EnvironmentProduction,
		},
	}
}

// Init restores the persisted selections and performs one status
// round-trip. A failing status check degrades to unauthenticated; the
// dashboard must come up either way.
func (s *State) Init(ctx context.Context) {
	s.mu.Lock()
	if env := s.creds.Environment(); env != "" {
		s.snap.Environment = env
	}
	s.snap.SelectedOrgID = s.creds.SelectedOrgID()
	s.mu.Unlock()

	status, err := s.api.Status(ctx)
	if err != nil {
		s.logger.Debug("initial status check failed", "error", err)
		return
	}
	s.applyStatus(status)
}

// Login runs a popup login attempt and, on success, re-synchronizes
// from the status endpoint. The popup's own report is never trusted as
// the final word. A failed attempt records a user-visible error but
// never downgrades an existing authenticated session. Returns
// orchestrator.ErrLoginInFlight when an attempt is already pending.
func (s *State) Login(ctx context.Context) error {
	s.mu.Lock()
	env := s.snap.Environment
	s.mu.Unlock()

	result, err := s.login.Login(ctx, env)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case orchestrator.OutcomeSuccess:
		status, err := s.api.Status(ctx)
		if err != nil {
			s.setLastError("could not confirm login, please retry")
			return nil
		}
		s.applyStatus(status)
		s.setLastError("")
	case orchestrator.OutcomeError:
		s.setLastError(result.Err.Error())
	case orchestrator.OutcomeCancelled:
		if result.Err != nil {
			s.setLastError(result.Err.Error())
		}
	}
	return nil
}

// Logout ends the server session and clears local state. The local
// clear is unconditional: even when the server call fails, this browser
// ends up logged out.
func (s *State) Logout(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("server logout failed, clearing local state anyway", "error", err)
	}

	s.mu.Lock()
	s.snap.Authenticated = false
	s.snap.User = nil
	s.snap.InstanceURL = ""
	s.snap.OrgCredentialsID = ""
	s.snap.LastError = ""
	s.mu.Unlock()

	s.cache.Invalidate()
}

// RefreshSession asks the server to rotate the access token, then bumps
// the refresh key so dependent results are re-fetched.
func (s *State) RefreshSession(ctx context.Context) error {
	if err := s.api.Refresh(ctx); err != nil {
		return err
	}
	s.TriggerRefresh()
	return nil
}

// TriggerRefresh invalidates all cached results by advancing the
// refresh key. Returns the new key.
func (s *State) TriggerRefresh() uint64 {
	s.mu.Lock()
	s.snap.RefreshKey++
	key := s.snap.RefreshKey
	s.mu.Unlock()
	return key
}

// SetEnvironment changes and persists the environment selection.
// Refused while authenticated: the active session is pinned to the
// environment it was minted in.
func (s *State) SetEnvironment(env domain.Environment) error {
	if !env.IsValid() {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	if s.snap.Authenticated {
		s.mu.Unlock()
		return ErrAuthenticated
	}
	s.snap.Environment = env
	s.mu.Unlock()

	return s.creds.SetEnvironment(env)
}

// SetSelectedOrgID changes and persists the org selection. Refused
// while authenticated.
func (s *State) SetSelectedOrgID(id string) error {
	s.mu.Lock()
	if s.snap.Authenticated {
		s.mu.Unlock()
		return ErrAuthenticated
	}
	s.snap.SelectedOrgID = id
	s.mu.Unlock()

	return s.creds.SetSelectedOrgID(id)
}

// Snapshot returns a copy of the current state
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// CacheKey returns the key cached results should be stored under
func (s *State) CacheKey() CacheKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CacheKey{Authenticated: s.snap.Authenticated, RefreshKey: s.snap.RefreshKey}
}

// Cache returns the session-scoped result cache
func (s *State) Cache() *Cache {
	return s.cache
}

// applyStatus folds a server status answer into local state. The server
// is authoritative: an authenticated answer overwrites the local
// environment with the session's.
func (s *State) applyStatus(status *domain.AuthStatus) {
	s.mu.Lock()
	wasAuthenticated := s.snap.Authenticated
	if status.Authenticated {
		s.snap.Authenticated = true
		s.snap.User = status.User
		s.snap.InstanceURL = status.InstanceURL
		s.snap.OrgCredentialsID = status.OrgCredentialsID
		if status.Environment.IsValid() {
			s.snap.Environment = status.Environment
		}
	} else {
		s.snap.Authenticated = false
		s.snap.User = nil
		s.snap.InstanceURL = ""
		s.snap.OrgCredentialsID = ""
	}
	changed := wasAuthenticated != s.snap.Authenticated
	s.mu.Unlock()

	if changed {
		s.cache.Invalidate()
	}
}

func (s *State) setLastError(msg string) {
	s.mu.Lock()
	s.snap.LastError = msg
	s.mu.Unlock()
}
