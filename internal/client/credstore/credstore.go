// Package credstore persists the org's connection parameters between
// dashboard sessions: the public OAuth client settings, the selected
// org, and the environment toggle.
package credstore

import (
	"encoding/json"
	"fmt"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
)

// Storage keys. Fixed so upgrades keep reading prior values.
const (
	credentialsKey   = "sf_org_credentials"
	selectedOrgIDKey = "sf_selected_org_id"
	environmentKey   = "sf_environment"
)

// CredentialStore reads and writes org credentials through a Storage
// backend. Reads degrade to absence: a missing, corrupt, or unavailable
// backend looks like "not configured yet", never an error the caller
// has to handle.
type CredentialStore struct {
	storage Storage
}

// NewCredentialStore creates a CredentialStore on the given backend
func NewCredentialStore(storage Storage) *CredentialStore {
	return &CredentialStore{storage: storage}
}

// Store validates and persists the credentials, overwriting any
// previous set.
func (c *CredentialStore) Store(creds *domain.OrgCredentials) error {
	if creds == nil {
		return domain.ErrInvalidInput
	}
	if err := creds.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return c.storage.Set(credentialsKey, string(data))
}

// Get returns the stored credentials, or nil when none are stored or
// the stored value cannot be decoded.
func (c *CredentialStore) Get() *domain.OrgCredentials {
	raw, ok := c.storage.Get(credentialsKey)
	if !ok {
		return nil
	}

	var creds domain.OrgCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil
	}
	if err := creds.Validate(); err != nil {
		return nil
	}
	return &creds
}

// Clear removes the stored credentials
func (c *CredentialStore) Clear() error {
	return c.storage.Delete(credentialsKey)
}

// Environment returns the persisted environment selection, or empty
// when none was stored.
func (c *CredentialStore) Environment() domain.Environment {
	raw, ok := c.storage.Get(environmentKey)
	if !ok {
		return ""
	}
	env := domain.Environment(raw)
	if !env.IsValid() {
		return ""
	}
	return env
}

// SetEnvironment persists the environment selection
func (c *CredentialStore) SetEnvironment(env domain.Environment) error {
	if !env.IsValid() {
		return domain.ErrInvalidInput
	}
	return c.storage.Set(environmentKey, string(env))
}

// SelectedOrgID returns the persisted org selection, or empty
func (c *CredentialStore) SelectedOrgID() string {
	raw, _ := c.storage.Get(selectedOrgIDKey)
	return raw
}

// SetSelectedOrgID persists the org selection. An empty id clears it.
func (c *CredentialStore) SetSelectedOrgID(id string) error {
	if id == "" {
		return c.storage.Delete(selectedOrgIDKey)
	}
	return c.storage.Set(selectedOrgIDKey, id)
}
