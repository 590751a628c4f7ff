package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

const sessionPrefix = "session:"

// SessionStore implements driven.SessionStore using Redis.
// Each session key carries the idle TTL; Touch re-extends it, so a live
// browser keeps its session and an idle one ages out on its own.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a new Redis-backed SessionStore
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Save stores a session with the idle TTL measured from LastSeenAt.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	ttl := time.Until(session.LastSeenAt.Add(domain.SessionIdleTTL))
	if ttl <= 0 {
		// Session already idle-expired, don't save
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, sessionPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Touch bumps LastSeenAt and re-extends the idle TTL.
func (s *SessionStore) Touch(ctx context.Context, id string, seenAt time.Time) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	session.LastSeenAt = seenAt
	return s.Save(ctx, session)
}

// Delete deletes a session. Idempotent.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteIdleBefore removes sessions idle past the cutoff and returns the
// count. TTLs expire most of these on their own; the sweep catches the
// rest and feeds the cron report.
func (s *SessionStore) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, sessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("sweep get %s: %w", key, err)
		}

		var session domain.Session
		if err := json.Unmarshal(data, &session); err != nil {
			if s.client.Del(ctx, key).Err() == nil {
				deleted++
			}
			continue
		}

		if session.LastSeenAt.Before(cutoff) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return deleted, fmt.Errorf("sweep del %s: %w", key, err)
			}
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("sweep scan: %w", err)
	}

	return deleted, nil
}
