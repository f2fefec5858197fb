// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	grantstore "github.com/dalemusser/lodgehub/internal/app/store/admingrants"
	identitystore "github.com/dalemusser/lodgehub/internal/app/store/identities"
	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	lodgestore "github.com/dalemusser/lodgehub/internal/app/store/lodges"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := EnsureIdentities(ctx, db); err != nil {
		problems = append(problems, identitystore.Collection+": "+err.Error())
	}
	if err := ensureLodges(ctx, db); err != nil {
		problems = append(problems, lodgestore.Collection+": "+err.Error())
	}
	if err := ensureAdminGrants(ctx, db); err != nil {
		problems = append(problems, grantstore.Collection+": "+err.Error())
	}
	if err := ensureLegacyAccounts(ctx, db); err != nil {
		problems = append(problems, legacystore.AccountsCollection+": "+err.Error())
	}
	if err := ensureLegacyProfiles(ctx, db); err != nil {
		problems = append(problems, legacystore.ProfilesCollection+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	// Load existing indexes once per collection.
	existing := map[string]existingIndex{} // sig -> index
	if cur, err := coll.Indexes().List(ctx); err == nil {
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
		cur.Close(ctx)
	}

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			if m.Options.Unique != nil {
				desiredUnique = m.Options.Unique
			}
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[desiredSig]; ok && sameBoolPtr(desiredUnique, ex.Unique) {
			zap.L().Info("reusing existing index",
				zap.String("collection", coll.Name()),
				zap.String("name", ex.Name),
				zap.String("keys", desiredSig))
			continue
		} else if ok {
			// Options mismatch (e.g., upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && desiredUnique != nil && *desiredUnique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), desiredName))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			}
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", desiredName),
			zap.String("keys", desiredSig),
			zap.Bool("unique", desiredUnique != nil && *desiredUnique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

// EnsureIdentities is exported because the reconciliation engine rebuilds the
// canonical collection (drop + bulk insert) and must restore its indexes
// afterwards.
func EnsureIdentities(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(identitystore.Collection)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Email must be unique across all canonical identities.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_identities_email"),
		},
		// Role counts and role-filtered listings.
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_identities_role"),
		},
		// Lodge rosters keyed by primary lodge.
		{
			Keys:    bson.D{{Key: "primary_lodge", Value: 1}},
			Options: options.Index().SetName("idx_identities_primary_lodge"),
		},
		// Membership queries against the lodges array (multikey).
		{
			Keys:    bson.D{{Key: "lodges", Value: 1}},
			Options: options.Index().SetName("idx_identities_lodges"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_identities_status"),
		},
	})
}

func ensureLodges(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(lodgestore.Collection)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// District closure runs an $or over these two fields on every
		// district-admin resolution.
		{
			Keys:    bson.D{{Key: "district", Value: 1}},
			Options: options.Index().SetName("idx_lodges_district"),
		},
		{
			Keys:    bson.D{{Key: "parent_lodge", Value: 1}},
			Options: options.Index().SetName("idx_lodges_parent_lodge"),
		},
		// Name search + stable sort.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_lodges_nameci__id"),
		},
	})
}

func ensureAdminGrants(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(grantstore.Collection)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One grant document per (identity, lodge) pair.
		{
			Keys:    bson.D{{Key: "identity_id", Value: 1}, {Key: "lodge_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_grants_identity_lodge"),
		},
	})
}

func ensureLegacyAccounts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(legacystore.AccountsCollection)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Not unique: the legacy store predates email dedup; reconciliation
		// handles duplicates with first-seen-wins.
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_legacy_accounts_email"),
		},
	})
}

func ensureLegacyProfiles(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(legacystore.ProfilesCollection)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_legacy_profiles_email"),
		},
	})
}
