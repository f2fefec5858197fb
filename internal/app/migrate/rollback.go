// internal/app/migrate/rollback.go
package migrate

// The rollback manager undoes a reconciliation run: it restores both legacy
// stores from the most recent snapshot set and removes the canonical store.
//
// OPERATIONAL HAZARD: on success every OLDER snapshot set is pruned. A
// completed rollback is irreversible; there is nothing left to roll back to
// a second time.

import (
	"context"
	"fmt"
	"time"

	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	snapshotstore "github.com/dalemusser/lodgehub/internal/app/store/snapshots"
	"github.com/dalemusser/lodgehub/internal/app/system/faults"
	"github.com/dalemusser/lodgehub/internal/app/system/maintlock"
	"go.uber.org/zap"
)

// lockTTL bounds how long a crashed batch job can hold the migration lock.
const lockTTL = 30 * time.Minute

// RestoredCounts reports what a rollback restored.
type RestoredCounts struct {
	SnapshotTimestamp string `json:"snapshot_timestamp"`
	Accounts          int64  `json:"accounts"`
	Profiles          int64  `json:"profiles"`
	PrunedSnapshots   int    `json:"pruned_snapshots"`
}

type RollbackManager struct {
	legacy    *legacystore.Stores
	canonical *identitystore.Store
	snapshots *snapshotstore.Manager
	lock      *maintlock.Lock
	log       *zap.Logger
}

func NewRollbackManager(legacy *legacystore.Stores, canonical *identitystore.Store, snapshots *snapshotstore.Manager, lock *maintlock.Lock, logger *zap.Logger) *RollbackManager {
	return &RollbackManager{
		legacy:    legacy,
		canonical: canonical,
		snapshots: snapshots,
		lock:      lock,
		log:       logger,
	}
}

// Run restores the legacy stores from the newest snapshot set.
func (m *RollbackManager) Run(ctx context.Context) (*RestoredCounts, error) {
	release, err := m.lock.Acquire(ctx, reconcileLock, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	set, err := m.snapshots.Latest(ctx)
	if err != nil {
		return nil, err
	}
	log := m.log.With(zap.String("snapshot", set.Timestamp))

	accountDocs, err := m.snapshots.Docs(ctx, set.AccountsColl)
	if err != nil {
		return nil, err
	}
	profileDocs, err := m.snapshots.Docs(ctx, set.ProfilesColl)
	if err != nil {
		return nil, err
	}
	if len(accountDocs) == 0 || len(profileDocs) == 0 {
		return nil, faults.New(faults.Validation, fmt.Sprintf(
			"snapshot %s is incomplete (accounts=%d profiles=%d); aborting before any write",
			set.Timestamp, len(accountDocs), len(profileDocs)))
	}

	// Destructive from here on.
	if err := m.legacy.Accounts.Drop(ctx); err != nil {
		return nil, err
	}
	restoredAccounts, err := m.legacy.Accounts.InsertRaw(ctx, accountDocs)
	if err != nil {
		return nil, err
	}

	if err := m.legacy.Profiles.Drop(ctx); err != nil {
		return nil, err
	}
	restoredProfiles, err := m.legacy.Profiles.InsertRaw(ctx, profileDocs)
	if err != nil {
		return nil, err
	}

	if err := m.canonical.Drop(ctx); err != nil {
		return nil, err
	}

	if restoredAccounts != int64(len(accountDocs)) || restoredProfiles != int64(len(profileDocs)) {
		return nil, faults.New(faults.Consistency, fmt.Sprintf(
			"restore incomplete: accounts %d/%d, profiles %d/%d",
			restoredAccounts, len(accountDocs), restoredProfiles, len(profileDocs)))
	}

	pruned, err := m.snapshots.Prune(ctx, set)
	if err != nil {
		// The restore itself succeeded; report the prune failure but return counts.
		log.Error("pruning older snapshots failed", zap.Error(err))
	}

	log.Info("rollback complete",
		zap.Int64("accounts", restoredAccounts),
		zap.Int64("profiles", restoredProfiles),
		zap.Int("pruned_snapshots", pruned))

	return &RestoredCounts{
		SnapshotTimestamp: set.Timestamp,
		Accounts:          restoredAccounts,
		Profiles:          restoredProfiles,
		PrunedSnapshots:   pruned,
	}, nil
}
