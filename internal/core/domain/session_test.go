package domain

import (
	"testing"
	"time"
)

func TestSession_IdleExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		lastSeen time.Time
		want     bool
	}{
		{"just used", now.Add(-1 * time.Minute), false},
		{"near cutoff", now.Add(-SessionIdleTTL + time.Minute), false},
		{"past cutoff", now.Add(-SessionIdleTTL - time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{LastSeenAt: tt.lastSeen}
			if got := s.IdleExpired(now); got != tt.want {
				t.Errorf("IdleExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	s := &Session{
		ID:               "sess-1",
		UserID:           "user-1",
		UserName:         "Ada",
		InstanceURL:      "https://acme.my.salesforce.com",
		Environment:      EnvironmentSandbox,
		OrgCredentialsID: "3MVG9abc",
		AccessToken:      "secret",
	}

	status := StatusFor(s)

	if !status.Authenticated {
		t.Error("expected authenticated status")
	}
	if status.User == nil || status.User.ID != "user-1" {
		t.Errorf("unexpected user: %+v", status.User)
	}
	if status.InstanceURL != s.InstanceURL {
		t.Errorf("expected instance url %s, got %s", s.InstanceURL, status.InstanceURL)
	}
	if status.OrgCredentialsID != "3MVG9abc" {
		t.Errorf("unexpected org credentials id %s", status.OrgCredentialsID)
	}
}
