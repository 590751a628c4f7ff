package domain

// Environment identifies which identity-provider org type a credential
// set targets. Sessions are pinned to the environment they were minted in.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// IsValid checks if the environment is a known value
func (e Environment) IsValid() bool {
	return e == EnvironmentProduction || e == EnvironmentSandbox
}

// OrgCredentials holds the public OAuth client parameters for a connected org.
// PKCE removes the need for a client secret, so none is ever stored.
type OrgCredentials struct {
	ClientID    string      `json:"clientId"`
	RedirectURI string      `json:"redirectUri"`
	Environment Environment `json:"environment"`
	OrgName     string      `json:"orgName"`
}

// Validate checks that all required fields are present
func (c *OrgCredentials) Validate() error {
	if c.ClientID == "" || c.RedirectURI == "" {
		return ErrInvalidInput
	}
	if !c.Environment.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// ID returns a stable identifier for this credential set.
// The client id uniquely identifies the connected-app registration.
func (c *OrgCredentials) ID() string {
	return c.ClientID
}
