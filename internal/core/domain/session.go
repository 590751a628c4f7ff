package domain

import "time"

// SessionIdleTTL is how long a session may sit idle before the janitor
// removes it.
const SessionIdleTTL = 4 * time.Hour

// Session represents an authenticated dashboard session, keyed by the
// opaque cookie value handed to the browser. The provider tokens are
// server-held and never serialized toward the client.
type Session struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	UserName         string      `json:"user_name,omitempty"`
	UserEmail        string      `json:"user_email,omitempty"`
	InstanceURL      string      `json:"instance_url"`
	Environment      Environment `json:"environment"`
	OrgCredentialsID string      `json:"org_credentials_id"`
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	LastSeenAt       time.Time   `json:"last_seen_at"`
}

// IdleExpired checks if the session has been idle past the idle TTL
func (s *Session) IdleExpired(now time.Time) bool {
	return now.Sub(s.LastSeenAt) > SessionIdleTTL
}

// User returns the session's user identity for status responses
func (s *Session) User() *UserInfo {
	return &UserInfo{
		ID:    s.UserID,
		Name:  s.UserName,
		Email: s.UserEmail,
	}
}

// UserInfo is the identity-provider user identity attached to a session
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuthStatus is the authoritative answer to "is this browser logged in".
// The optional fields are only present when Authenticated is true.
type AuthStatus struct {
	Authenticated    bool        `json:"authenticated"`
	User             *UserInfo   `json:"user,omitempty"`
	Environment      Environment `json:"environment,omitempty"`
	InstanceURL      string      `json:"instanceUrl,omitempty"`
	OrgCredentialsID string      `json:"orgCredentialsId,omitempty"`
}

// StatusFor builds the status payload for an established session
func StatusFor(s *Session) *AuthStatus {
	return &AuthStatus{
		Authenticated:    true,
		User:             s.User(),
		Environment:      s.Environment,
		InstanceURL:      s.InstanceURL,
		OrgCredentialsID: s.OrgCredentialsID,
	}
}

// CleanupReport holds the row counts removed by a single janitor sweep
type CleanupReport struct {
	ExpiredStates   int64 `json:"expiredStates"`
	ExpiredSessions int64 `json:"expiredSessions"`
}
