package salesforce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.IdentityProvider = (*Provider)(nil)

const (
	productionBaseURL = "https://login.salesforce.com"
	sandboxBaseURL    = "https://test.salesforce.com"

	authorizePath = "/services/oauth2/authorize"
	tokenPath     = "/services/oauth2/token"
)

// ErrNoIdentity indicates the token response carried no usable id_token.
var ErrNoIdentity = errors.New("no id_token in token response")

// Provider drives the Salesforce OAuth2 endpoints for the PKCE flow.
// Production and sandbox orgs use different login hosts, so the
// environment picks the endpoint pair.
type Provider struct {
	httpClient *http.Client
}

// NewProvider creates a Salesforce identity provider adapter.
func NewProvider() *Provider {
	return &Provider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// baseURL returns the login host for the environment.
func baseURL(env domain.Environment) string {
	if env == domain.EnvironmentSandbox {
		return sandboxBaseURL
	}
	return productionBaseURL
}

// oauthConfig builds the x/oauth2 config for a credential set.
func oauthConfig(creds *domain.OrgCredentials) *oauth2.Config {
	base := baseURL(creds.Environment)
	return &oauth2.Config{
		ClientID:    creds.ClientID,
		RedirectURL: creds.RedirectURI,
		Scopes:      []string{"openid", "api", "refresh_token"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + authorizePath,
			TokenURL: base + tokenPath,
		},
	}
}

// AuthorizeURL builds the authorize URL with the PKCE challenge attached.
func (p *Provider) AuthorizeURL(creds *domain.OrgCredentials, state, codeChallenge string) string {
	cfg := oauthConfig(creds)
	return cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange trades the authorization code plus PKCE verifier for tokens.
func (p *Provider) Exchange(ctx context.Context, creds *domain.OrgCredentials, code, codeVerifier string) (*driven.ProviderToken, error) {
	cfg := oauthConfig(creds)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	return fromOAuth2Token(token), nil
}

// Refresh rotates the access token using the server-held refresh token.
func (p *Provider) Refresh(ctx context.Context, creds *domain.OrgCredentials, refreshToken string) (*driven.ProviderToken, error) {
	cfg := oauthConfig(creds)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	return fromOAuth2Token(token), nil
}

// Identity extracts the user identity from the id_token claims.
// The signature is deliberately not verified here: the token arrived
// over TLS directly from the provider's token endpoint, and validation
// is the provider's and session store's concern.
func (p *Provider) Identity(token *driven.ProviderToken) (*domain.UserInfo, error) {
	if token.IDToken == "" {
		return nil, ErrNoIdentity
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token.IDToken, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrNoIdentity
	}

	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)

	return &domain.UserInfo{
		ID:    sub,
		Name:  name,
		Email: email,
	}, nil
}

// fromOAuth2Token maps the provider token response, picking up the
// Salesforce-specific instance_url and id_token extras.
func fromOAuth2Token(token *oauth2.Token) *driven.ProviderToken {
	pt := &driven.ProviderToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
	}
	if instanceURL, ok := token.Extra("instance_url").(string); ok {
		pt.InstanceURL = instanceURL
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		pt.IDToken = idToken
	}
	return pt
}
