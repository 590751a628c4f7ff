package redis

import (
	"context"
	"testing"
	"time"
)

func TestLock_AcquireRelease(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "janitor", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Fatal("expected to acquire lock")
	}

	// A second instance cannot take the held lock
	other := NewLock(client)
	acquired, err = other.Acquire(ctx, "janitor", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if acquired {
		t.Error("expected second instance to be blocked")
	}

	if err := lock.Release(ctx, "janitor"); err != nil {
		t.Fatalf("release: %v", err)
	}

	acquired, err = other.Acquire(ctx, "janitor", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if !acquired {
		t.Error("expected lock to be free after release")
	}
}

func TestLock_ReleaseNotOwned(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	owner := NewLock(client)
	intruder := NewLock(client)
	ctx := context.Background()

	if _, err := owner.Acquire(ctx, "janitor", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Release by a non-owner must not free the lock
	if err := intruder.Release(ctx, "janitor"); err != nil {
		t.Fatalf("intruder release: %v", err)
	}

	acquired, err := intruder.Acquire(ctx, "janitor", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if acquired {
		t.Error("lock should still be held by the owner")
	}
}

func TestLock_Extend(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	lock := NewLock(client)
	ctx := context.Background()

	if _, err := lock.Acquire(ctx, "janitor", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Extend(ctx, "janitor", 2*time.Minute); err != nil {
		t.Fatalf("extend: %v", err)
	}

	// Extending a lock we don't hold fails
	other := NewLock(client)
	if err := other.Extend(ctx, "janitor", time.Minute); err == nil {
		t.Error("expected extend to fail for non-owner")
	}
}
