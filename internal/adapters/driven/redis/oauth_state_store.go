package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

const oauthStatePrefix = "oauth_state:"

// OAuthStateStore implements driven.OAuthStateStore using Redis.
// Entries carry a TTL matching their expiry, so Redis drops abandoned
// states on its own; Cleanup still counts and removes anything the
// cutoff says is stale.
type OAuthStateStore struct {
	client *redis.Client
}

// NewOAuthStateStore creates a new Redis-backed OAuth state store.
func NewOAuthStateStore(client *redis.Client) *OAuthStateStore {
	return &OAuthStateStore{client: client}
}

// Save stores a new OAuth state with a TTL matching its expiry.
func (s *OAuthStateStore) Save(ctx context.Context, state *driven.OAuthState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = state.CreatedAt.Add(driven.OAuthStateTTL)
	}

	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		// Already expired, don't save
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth state: %w", err)
	}

	if err := s.client.Set(ctx, oauthStatePrefix+state.State, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}

	return nil
}

// GetAndDelete atomically retrieves and deletes the state via GETDEL.
func (s *OAuthStateStore) GetAndDelete(ctx context.Context, state string) (*driven.OAuthState, error) {
	data, err := s.client.GetDel(ctx, oauthStatePrefix+state).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found, expired, or already consumed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth state: %w", err)
	}

	var oauthState driven.OAuthState
	if err := json.Unmarshal(data, &oauthState); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}

	if time.Now().After(oauthState.ExpiresAt) {
		return nil, nil
	}

	return &oauthState, nil
}

// Cleanup removes states created before the cutoff and returns the count.
// Redis TTLs already expire most entries; this pass catches the rest and
// produces the count the cron report wants.
func (s *OAuthStateStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, oauthStatePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue // Expired between scan and get
		}
		if err != nil {
			return deleted, fmt.Errorf("cleanup get %s: %w", key, err)
		}

		var state driven.OAuthState
		if err := json.Unmarshal(data, &state); err != nil {
			// Unreadable entry, drop it
			if s.client.Del(ctx, key).Err() == nil {
				deleted++
			}
			continue
		}

		if state.CreatedAt.Before(cutoff) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return deleted, fmt.Errorf("cleanup del %s: %w", key, err)
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("cleanup scan: %w", err)
	}

	return deleted, nil
}
