package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orgscope-labs/orgscope-core/internal/core/domain"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driven"
	"github.com/orgscope-labs/orgscope-core/internal/core/ports/driving"
)

// Ensure Janitor implements CleanupService
var _ driving.CleanupService = (*Janitor)(nil)

// Janitor periodically expires stale authorization and session records:
// OAuth states older than their TTL are abandoned login attempts, and
// sessions idle past theirs belong to browsers that went away.
//
// For multi-instance deployments, configure a DistributedLock so only
// one instance sweeps per cycle. Sweeps are idempotent either way.
type Janitor struct {
	stateStore   driven.OAuthStateStore
	sessionStore driven.SessionStore
	lock         driven.DistributedLock
	logger       *slog.Logger

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	interval   time.Duration
	stateTTL   time.Duration
	sessionTTL time.Duration
	lockTTL    time.Duration
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	OAuthStateStore driven.OAuthStateStore
	SessionStore    driven.SessionStore
	Lock            driven.DistributedLock // Optional: multi-instance coordination
	Logger          *slog.Logger
	SweepInterval   time.Duration // How often to sweep (default: 10m)
	StateTTL        time.Duration // OAuth state lifetime (default: driven.OAuthStateTTL)
	SessionTTL      time.Duration // Session idle lifetime (default: domain.SessionIdleTTL)
	LockTTL         time.Duration // TTL for the distributed lock (default: 2x interval)
}

// NewJanitor creates a new expiry janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.SweepInterval
	if interval == 0 {
		interval = 10 * time.Minute
	}

	stateTTL := cfg.StateTTL
	if stateTTL == 0 {
		stateTTL = driven.OAuthStateTTL
	}

	sessionTTL := cfg.SessionTTL
	if sessionTTL == 0 {
		sessionTTL = domain.SessionIdleTTL
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Janitor{
		stateStore:   cfg.OAuthStateStore,
		sessionStore: cfg.SessionStore,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		stateTTL:     stateTTL,
		sessionTTL:   sessionTTL,
		lockTTL:      lockTTL,
	}
}

// Sweep runs one expiry pass and reports the deletion counts.
// Pure deletion, no other side effects; safe to call concurrently.
func (j *Janitor) Sweep(ctx context.Context) (*domain.CleanupReport, error) {
	now := time.Now()

	expiredStates, err := j.stateStore.Cleanup(ctx, now.Add(-j.stateTTL))
	if err != nil {
		return nil, fmt.Errorf("cleanup oauth states: %w", err)
	}

	expiredSessions, err := j.sessionStore.DeleteIdleBefore(ctx, now.Add(-j.sessionTTL))
	if err != nil {
		return nil, fmt.Errorf("cleanup sessions: %w", err)
	}

	return &domain.CleanupReport{
		ExpiredStates:   expiredStates,
		ExpiredSessions: expiredSessions,
	}, nil
}

// Start begins the periodic sweep loop.
// It runs until Stop is called or the context is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting", "sweep_interval", j.interval)

	go j.run(ctx)

	return nil
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.mu.Unlock()

	<-j.doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

// run is the main sweep loop.
func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Sweep immediately on start
	j.sweepCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.sweepCycle(ctx)
		}
	}
}

// sweepCycle runs one locked sweep. If a distributed lock is configured
// and held elsewhere, the cycle is skipped; deletions are idempotent so
// a missed lock only costs duplicate-free work, never correctness.
func (j *Janitor) sweepCycle(ctx context.Context) {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, "janitor", j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping cycle")
			return
		}
		defer func() {
			if err := j.lock.Release(ctx, "janitor"); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	report, err := j.Sweep(ctx)
	if err != nil {
		j.logger.Error("sweep failed", "error", err)
		return
	}

	if report.ExpiredStates > 0 || report.ExpiredSessions > 0 {
		j.logger.Info("sweep complete",
			"expired_states", report.ExpiredStates,
			"expired_sessions", report.ExpiredSessions,
		)
	}
}
