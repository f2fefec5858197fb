// internal/app/migrate/reconcile.go
package migrate

// The reconciliation engine merges the two legacy stores into the canonical
// identity collection. It is a full rebuild (drop-then-bulk-insert), safe to
// re-run but NOT safe to run concurrently with live traffic; the maintenance
// lock guards against concurrent invocation, the maintenance window is the
// operator's responsibility.

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/lodgehub/internal/app/store/directory"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	snapshotstore "github.com/dalemusser/lodgehub/internal/app/store/snapshots"
	"github.com/dalemusser/lodgehub/internal/app/system/indexes"
	"github.com/dalemusser/lodgehub/internal/app/system/maintlock"
	"github.com/dalemusser/lodgehub/internal/app/system/normalize"
	"github.com/dalemusser/lodgehub/internal/app/system/roles"
	"github.com/dalemusser/lodgehub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrNoInput is returned when both legacy stores are empty; running a full
// rebuild against nothing would wipe the canonical store for no reason.
var ErrNoInput = errors.New("no legacy records to reconcile")

// reconcileLock names the advisory lock shared with the rollback manager.
const reconcileLock = "legacy-migration"

// Report summarizes one reconciliation run.
type Report struct {
	RunID             string `json:"run_id"`
	Accounts          int    `json:"accounts"`
	Profiles          int    `json:"profiles"`
	Processed         int    `json:"processed"` // distinct emails
	Created           int64  `json:"created"`
	Duplicates        int    `json:"duplicates"`
	Malformed         int    `json:"malformed"`
	SnapshotTimestamp string `json:"snapshot_timestamp"`
	MismatchWarning   string `json:"mismatch_warning,omitempty"`
}

type Reconciler struct {
	db        *mongo.Database
	legacy    *legacystore.Stores
	canonical *identitystore.Store
	snapshots *snapshotstore.Manager
	lock      *maintlock.Lock
	log       *zap.Logger
}

func NewReconciler(db *mongo.Database, legacy *legacystore.Stores, canonical *identitystore.Store, snapshots *snapshotstore.Manager, lock *maintlock.Lock, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		db:        db,
		legacy:    legacy,
		canonical: canonical,
		snapshots: snapshots,
		lock:      lock,
		log:       logger,
	}
}

// Run executes one reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	release, err := r.lock.Acquire(ctx, reconcileLock, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &Report{RunID: uuid.NewString()}
	log := r.log.With(zap.String("run_id", report.RunID))

	malformed := func(err error) {
		report.Malformed++
		log.Warn("skipping malformed legacy record", zap.Error(err))
	}

	accounts, err := r.legacy.Accounts.All(ctx, malformed)
	if err != nil {
		return nil, err
	}
	profiles, err := r.legacy.Profiles.All(ctx, malformed)
	if err != nil {
		return nil, err
	}
	report.Accounts = len(accounts)
	report.Profiles = len(profiles)
	if len(accounts) == 0 && len(profiles) == 0 {
		return nil, ErrNoInput
	}

	// Snapshot both legacy stores before touching anything; this is what the
	// rollback manager restores from.
	set, na, np, err := r.snapshots.Create(ctx)
	if err != nil {
		return nil, err
	}
	report.SnapshotTimestamp = set.Timestamp
	log.Info("legacy stores snapshotted",
		zap.String("timestamp", set.Timestamp),
		zap.Int64("accounts", na),
		zap.Int64("profiles", np))

	// Merge, keyed by lowercased email. Account records seed the drafts;
	// profile records merge into account-seeded drafts or start profile-only
	// drafts. A profile colliding with an earlier profile is a duplicate, not
	// a merge partner: first seen wins, same as duplicate accounts.
	drafts := make(map[string]*models.Identity)
	profileSeeded := make(map[string]bool)
	var order []string

	for _, a := range accounts {
		email := normalize.Email(a.Email)
		if email == "" {
			malformed(fmt.Errorf("account %s has no email", a.ID.Hex()))
			continue
		}
		if _, ok := drafts[email]; ok {
			report.Duplicates++
			log.Warn("duplicate legacy account email, first seen wins",
				zap.String("email", email))
			continue
		}
		acct := a
		drafts[email] = directory.FromAccount(&acct)
		order = append(order, email)
	}

	for _, p := range profiles {
		email := normalize.Email(p.Email)
		if email == "" {
			malformed(fmt.Errorf("profile %s has no email", p.ID.Hex()))
			continue
		}
		prof := p
		if draft, ok := drafts[email]; ok {
			if profileSeeded[email] {
				report.Duplicates++
				log.Warn("duplicate legacy profile email, first seen wins",
					zap.String("email", email))
				continue
			}
			r.mergeProfile(draft, &prof, log)
			continue
		}
		draft := directory.FromProfile(&prof)
		if prof.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(prof.Password), bcrypt.DefaultCost)
			if err != nil {
				malformed(fmt.Errorf("profile %s: hashing password: %w", prof.ID.Hex(), err))
				continue
			}
			draft.PasswordHash = string(hash)
		}
		drafts[email] = draft
		profileSeeded[email] = true
		order = append(order, email)
	}

	report.Processed = len(order)

	idents := make([]models.Identity, 0, len(order))
	for _, email := range order {
		idents = append(idents, *drafts[email])
	}

	created, err := r.canonical.ReplaceAll(ctx, idents)
	if err != nil {
		return nil, err
	}
	report.Created = created

	// The drop in ReplaceAll took the indexes with it.
	if err := indexes.EnsureIdentities(ctx, r.db); err != nil {
		return nil, err
	}

	if int64(report.Processed) != report.Created {
		report.MismatchWarning = fmt.Sprintf(
			"processed %d distinct emails but created %d canonical records; inspect before trusting this run",
			report.Processed, report.Created)
		log.Warn("reconciliation count mismatch",
			zap.Int("processed", report.Processed),
			zap.Int64("created", report.Created))
	}

	log.Info("reconciliation complete",
		zap.Int("accounts", report.Accounts),
		zap.Int("profiles", report.Profiles),
		zap.Int("processed", report.Processed),
		zap.Int64("created", report.Created),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("malformed", report.Malformed))
	return report, nil
}

// mergeProfile folds a profile record into an account-seeded draft.
// Contact/personal fields follow "profile overrides only when non-empty";
// lodge references are unioned; role takes the precedence maximum; a
// plaintext password is hashed only when the draft has no credential yet.
func (r *Reconciler) mergeProfile(draft *models.Identity, p *models.LegacyProfile, log *zap.Logger) {
	fromProfile := directory.FromProfile(p)

	if fromProfile.Name != "" {
		draft.Name = fromProfile.Name
	}
	if p.FirstName != "" {
		draft.FirstName = p.FirstName
	}
	if p.LastName != "" {
		draft.LastName = p.LastName
	}
	if p.Phone != "" {
		draft.Phone = p.Phone
	}
	if p.Address != "" {
		draft.Address = p.Address
	}
	if !p.MemberSince.IsZero() {
		draft.MemberSince = p.MemberSince
	}

	draft.Role = roles.Max(draft.Role, p.Role)

	if draft.PrimaryLodge == nil {
		draft.PrimaryLodge = p.PrimaryLodge
	}
	draft.Lodges = unionIDs(draft.Lodges, fromProfile.Lodges)
	if len(p.LodgeMemberships) > 0 {
		draft.LodgeMemberships = append(draft.LodgeMemberships, p.LodgeMemberships...)
	}

	if draft.PasswordHash == "" && p.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Warn("hashing profile password failed",
				zap.String("email", draft.Email),
				zap.Error(err))
		} else {
			draft.PasswordHash = string(hash)
		}
	}
}

func unionIDs(a, b []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(a)+len(b))
	out := make([]primitive.ObjectID, 0, len(a)+len(b))
	for _, s := range [][]primitive.ObjectID{a, b} {
		for _, id := range s {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
