package snapshotstore_test

import (
	"testing"
	"time"

	snapshotstore "github.com/dalemusser/lodgehub/internal/app/store/snapshots"
	"github.com/dalemusser/lodgehub/internal/testutil"
)

func TestCreateAndLatest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)
	mgr := snapshotstore.New(db)

	fx.CreateLegacyAccount(ctx, "A", "a@example.com", "user", "pw", nil)
	fx.CreateLegacyProfile(ctx, "B", "Bee", "b@example.com", "user", "pw", nil)

	set, accounts, profiles, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if accounts != 1 || profiles != 1 {
		t.Errorf("copied counts: got %d/%d, want 1/1", accounts, profiles)
	}
	if _, err := time.Parse(snapshotstore.TimestampLayout, set.Timestamp); err != nil {
		t.Errorf("timestamp %q does not match layout: %v", set.Timestamp, err)
	}

	latest, err := mgr.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Timestamp != set.Timestamp {
		t.Errorf("latest: got %q, want %q", latest.Timestamp, set.Timestamp)
	}
}

func TestLatest_NoSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()

	if _, err := snapshotstore.New(db).Latest(ctx); err != snapshotstore.ErrNoSnapshot {
		t.Errorf("got %v, want ErrNoSnapshot", err)
	}
}

func TestDocsRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)
	mgr := snapshotstore.New(db)

	fx.CreateLegacyAccount(ctx, "C", "c@example.com", "user", "pw", nil)
	fx.CreateLegacyAccount(ctx, "D", "d@example.com", "user", "pw", nil)

	set, _, _, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	docs, err := mgr.Docs(ctx, set.AccountsColl)
	if err != nil {
		t.Fatalf("Docs: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("docs: got %d, want 2", len(docs))
	}
}

func TestPrune_KeepsOnlyGivenSet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext()
	fx := testutil.NewFixtures(t, db)
	mgr := snapshotstore.New(db)

	fx.CreateLegacyAccount(ctx, "E", "e@example.com", "user", "pw", nil)
	fx.CreateLegacyProfile(ctx, "F", "Eff", "f@example.com", "user", "pw", nil)

	if _, _, _, err := mgr.Create(ctx); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	// Snapshot collection names carry second precision.
	time.Sleep(1100 * time.Millisecond)
	keep, _, _, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	pruned, err := mgr.Prune(ctx, keep)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned: got %d, want 1", pruned)
	}

	sets, err := mgr.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sets) != 1 || sets[0].Timestamp != keep.Timestamp {
		t.Errorf("remaining sets: got %v, want only %q", sets, keep.Timestamp)
	}
}
