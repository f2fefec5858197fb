// internal/app/store/snapshots/snapshotstore.go
package snapshotstore

// Snapshots are point-in-time copies of the two legacy collections, stored as
// sibling collections whose names end in a shared UTC timestamp suffix. The
// reconciliation engine writes a set before rebuilding the canonical store;
// the rollback manager restores from the newest set and prunes the rest.

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	legacystore "github.com/dalemusser/lodgehub/internal/app/store/legacy"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	accountsPrefix = legacystore.AccountsCollection + "_snapshot_"
	profilesPrefix = legacystore.ProfilesCollection + "_snapshot_"

	// TimestampLayout is the suffix format; lexicographic order equals
	// chronological order, which the "newest snapshot" selection relies on.
	TimestampLayout = "20060102T150405"
)

// ErrNoSnapshot is returned when no snapshot set exists.
var ErrNoSnapshot = errors.New("no snapshot")

// Set names one snapshot pair.
type Set struct {
	Timestamp    string `json:"timestamp"`
	AccountsColl string `json:"accounts_collection"`
	ProfilesColl string `json:"profiles_collection"`
}

type Manager struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Manager {
	return &Manager{db: db}
}

// Create copies both legacy collections into a new timestamped snapshot set
// and returns it along with the copied document counts.
func (m *Manager) Create(ctx context.Context) (Set, int64, int64, error) {
	ts := time.Now().UTC().Format(TimestampLayout)
	set := Set{
		Timestamp:    ts,
		AccountsColl: accountsPrefix + ts,
		ProfilesColl: profilesPrefix + ts,
	}

	na, err := m.copyCollection(ctx, legacystore.AccountsCollection, set.AccountsColl)
	if err != nil {
		return Set{}, 0, 0, err
	}
	np, err := m.copyCollection(ctx, legacystore.ProfilesCollection, set.ProfilesColl)
	if err != nil {
		return Set{}, 0, 0, err
	}
	return set, na, np, nil
}

// List returns all complete snapshot sets, oldest first. A timestamp with
// only one of the two collections present is ignored as incomplete.
func (m *Manager) List(ctx context.Context) ([]Set, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	accounts := map[string]bool{}
	profiles := map[string]bool{}
	for _, n := range names {
		if strings.HasPrefix(n, accountsPrefix) {
			accounts[strings.TrimPrefix(n, accountsPrefix)] = true
		}
		if strings.HasPrefix(n, profilesPrefix) {
			profiles[strings.TrimPrefix(n, profilesPrefix)] = true
		}
	}

	var sets []Set
	for ts := range accounts {
		if profiles[ts] {
			sets = append(sets, Set{
				Timestamp:    ts,
				AccountsColl: accountsPrefix + ts,
				ProfilesColl: profilesPrefix + ts,
			})
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].Timestamp < sets[j].Timestamp })
	return sets, nil
}

// Latest returns the snapshot set with the greatest timestamp.
func (m *Manager) Latest(ctx context.Context) (Set, error) {
	sets, err := m.List(ctx)
	if err != nil {
		return Set{}, err
	}
	if len(sets) == 0 {
		return Set{}, ErrNoSnapshot
	}
	return sets[len(sets)-1], nil
}

// Docs reads every document of a snapshot collection as raw bson.
func (m *Manager) Docs(ctx context.Context, coll string) ([]interface{}, error) {
	cur, err := m.db.Collection(coll).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []interface{}
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, cur.Err()
}

// Count returns the document count of a snapshot collection.
func (m *Manager) Count(ctx context.Context, coll string) (int64, error) {
	return m.db.Collection(coll).CountDocuments(ctx, bson.M{})
}

// Prune drops every snapshot set except keep. Pruned snapshots are gone for
// good; callers run this only after a restore has been verified.
func (m *Manager) Prune(ctx context.Context, keep Set) (int, error) {
	sets, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	dropped := 0
	for _, s := range sets {
		if s.Timestamp == keep.Timestamp {
			continue
		}
		if err := m.db.Collection(s.AccountsColl).Drop(ctx); err != nil {
			return dropped, err
		}
		if err := m.db.Collection(s.ProfilesColl).Drop(ctx); err != nil {
			return dropped, err
		}
		dropped++
	}
	return dropped, nil
}

func (m *Manager) copyCollection(ctx context.Context, from, to string) (int64, error) {
	cur, err := m.db.Collection(from).Find(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var docs []interface{}
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return 0, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	res, err := m.db.Collection(to).InsertMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}
