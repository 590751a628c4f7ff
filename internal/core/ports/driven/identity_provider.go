package driven

import (
	"context"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// ProviderToken is the token set returned by the identity provider after
// a code exchange or refresh. InstanceURL is the org instance the tokens
// are scoped to.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	InstanceURL  string
}

// IdentityProvider abstracts the external identity provider the org
// delegates login to. Token validation and introspection stay on the
// provider's side; this port only drives the authorization-code flow.
type IdentityProvider interface {
	// AuthorizeURL builds the provider authorize URL for a login attempt,
	// carrying state, the S256 code challenge, and the redirect URI.
	AuthorizeURL(creds *domain.OrgCredentials, state, codeChallenge string) string

	// Exchange trades an authorization code plus PKCE verifier for tokens.
	Exchange(ctx context.Context, creds *domain.OrgCredentials, code, codeVerifier string) (*ProviderToken, error)

	// Refresh rotates the access token using the server-held refresh token.
	Refresh(ctx context.Context, creds *domain.OrgCredentials, refreshToken string) (*ProviderToken, error)

	// Identity extracts the authenticated user's identity from a token set.
	Identity(token *ProviderToken) (*domain.UserInfo, error)
}
