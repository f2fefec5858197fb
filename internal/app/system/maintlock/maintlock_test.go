package maintlock_test

import (
	"testing"
	"time"

	"github.com/dalemusser/lodgehub/internal/app/system/maintlock"
	"github.com/dalemusser/lodgehub/internal/testutil"
	"go.uber.org/zap"
)

func TestAcquireAndRelease(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	lock := maintlock.New(db, zap.NewNop())

	release, err := lock.Acquire(ctx, "batch", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// A second acquire while held is refused.
	if _, err := lock.Acquire(ctx, "batch", time.Minute); err != maintlock.ErrHeld {
		t.Errorf("second Acquire: got %v, want ErrHeld", err)
	}

	release()

	// After release the lock is free again.
	release2, err := lock.Acquire(ctx, "batch", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}

func TestAcquire_DifferentNamesIndependent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	lock := maintlock.New(db, zap.NewNop())

	r1, err := lock.Acquire(ctx, "one", time.Minute)
	if err != nil {
		t.Fatalf("Acquire one: %v", err)
	}
	defer r1()

	r2, err := lock.Acquire(ctx, "two", time.Minute)
	if err != nil {
		t.Fatalf("Acquire two: %v", err)
	}
	r2()
}

// A lock whose TTL has lapsed belongs to a crashed run and may be stolen.
func TestAcquire_StealsExpiredLock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	lock := maintlock.New(db, zap.NewNop())

	if _, err := lock.Acquire(ctx, "stale", 10*time.Millisecond); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// Never released; let the TTL lapse.
	time.Sleep(50 * time.Millisecond)

	release, err := lock.Acquire(ctx, "stale", time.Minute)
	if err != nil {
		t.Fatalf("Acquire over expired lock: %v", err)
	}
	release()
}
