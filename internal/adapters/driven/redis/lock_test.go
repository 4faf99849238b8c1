package redis

import (
	"context"
	"testing"
	"time"
)

func TestLock_AcquireRelease(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if lock1.OwnerID() == lock2.OwnerID() {
		t.Fatalf("expected unique owner IDs, got %s", lock1.OwnerID())
	}

	acquired, err := lock1.Acquire(ctx, "process:doc-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	acquired, err = lock2.Acquire(ctx, "process:doc-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if acquired {
		t.Fatal("second instance must not acquire a held lock")
	}

	if err := lock1.Release(ctx, "process:doc-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	acquired, err = lock2.Acquire(ctx, "process:doc-1", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if !acquired {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestLock_ReleaseOnlyOwn(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	lock1 := NewLock(client)
	lock2 := NewLock(client)

	if _, err := lock1.Acquire(ctx, "shared", time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Releasing someone else's lock is a no-op.
	if err := lock2.Release(ctx, "shared"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	acquired, err := lock2.Acquire(ctx, "shared", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if acquired {
		t.Error("lock must still be held by the original owner")
	}
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	lock := NewLock(client)
	other := NewLock(client)

	if _, err := lock.Acquire(ctx, "job", time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := lock.Extend(ctx, "job", 5*time.Minute); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := other.Extend(ctx, "job", time.Minute); err == nil {
		t.Error("extending someone else's lock must fail")
	}

	// After expiry the lock is free again.
	mr.FastForward(10 * time.Minute)
	acquired, err := other.Acquire(ctx, "job", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
	if !acquired {
		t.Error("expected lock to expire")
	}
}
