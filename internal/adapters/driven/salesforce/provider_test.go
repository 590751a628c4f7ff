package salesforce

import (
	"net/url"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
)

func testCredentials(env domain.Environment) *domain.OrgCredentials {
	return &domain.OrgCredentials{
		ClientID:    "3MVG9abc",
		RedirectURI: "https://app.example.com/api/auth/callback",
		Environment: env,
		OrgName:     "Acme",
	}
}

func TestAuthorizeURL_Sandbox(t *testing.T) {
	p := NewProvider()

	raw := p.AuthorizeURL(testCredentials(domain.EnvironmentSandbox), "state-1", "challenge-1")

	if !strings.HasPrefix(raw, sandboxBaseURL+authorizePath) {
		t.Fatalf("expected sandbox authorize url, got %s", raw)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()

	if q.Get("client_id") != "3MVG9abc" {
		t.Errorf("client_id = %s", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "https://app.example.com/api/auth/callback" {
		t.Errorf("redirect_uri = %s", q.Get("redirect_uri"))
	}
	if q.Get("state") != "state-1" {
		t.Errorf("state = %s", q.Get("state"))
	}
	if q.Get("code_challenge") != "challenge-1" {
		t.Errorf("code_challenge = %s", q.Get("code_challenge"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %s", q.Get("code_challenge_method"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %s", q.Get("response_type"))
	}
}

func TestAuthorizeURL_ProductionHost(t *testing.T) {
	p := NewProvider()

	raw := p.AuthorizeURL(testCredentials(domain.EnvironmentProduction), "state-1", "challenge-1")

	if !strings.HasPrefix(raw, productionBaseURL+authorizePath) {
		t.Fatalf("expected production authorize url, got %s", raw)
	}
}

func TestIdentity_ParsesIDTokenClaims(t *testing.T) {
	// ParseUnverified ignores the signature, so any signing key works here
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"name":  "Ada Lovelace",
		"email": "ada@acme.example",
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}

	p := NewProvider()
	user, err := p.Identity(&driven.ProviderToken{IDToken: idToken})
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	if user.ID != "user-1" {
		t.Errorf("id = %s", user.ID)
	}
	if user.Name != "Ada Lovelace" {
		t.Errorf("name = %s", user.Name)
	}
	if user.Email != "ada@acme.example" {
		t.Errorf("email = %s", user.Email)
	}
}

func TestIdentity_MissingIDToken(t *testing.T) {
	p := NewProvider()

	if _, err := p.Identity(&driven.ProviderToken{}); err != ErrNoIdentity {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestIdentity_MissingSubject(t *testing.T) {
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"name": "No Subject",
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}

	p := NewProvider()
	if _, err := p.Identity(&driven.ProviderToken{IDToken: idToken}); err != ErrNoIdentity {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}
