// Package maintlock provides a Mongo-backed advisory lock for batch jobs.
//
// The reconciliation engine and the rollback manager both perform destructive
// drop-then-rebuild steps and must never run concurrently. Acquiring the lock
// inserts a document whose _id is the lock name; the unique _id constraint
// makes acquisition race-free. A TTL guards against a crashed holder leaving
// the lock stuck.
package maintlock

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collection is the advisory-lock collection name.
const Collection = "maintenance_locks"

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("maintenance lock already held")

type Lock struct {
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Lock {
	return &Lock{c: db.Collection(Collection), log: logger}
}

type lockDoc struct {
	Name       string    `bson:"_id"`
	Holder     string    `bson:"holder"`
	AcquiredAt time.Time `bson:"acquired_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// Acquire takes the named lock for at most ttl. On success it returns a
// release function; the caller must invoke it when the job finishes.
// An expired lock left by a crashed holder is stolen.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	holder := uuid.NewString()
	now := time.Now().UTC()
	doc := lockDoc{
		Name:       name,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	_, err := l.c.InsertOne(ctx, doc)
	if wafflemongo.IsDup(err) {
		// Held. Steal only if the previous holder's TTL has lapsed.
		res, derr := l.c.DeleteOne(ctx, bson.M{"_id": name, "expires_at": bson.M{"$lt": now}})
		if derr != nil {
			return nil, derr
		}
		if res.DeletedCount == 0 {
			return nil, ErrHeld
		}
		l.log.Warn("stole expired maintenance lock", zap.String("lock", name))
		if _, err := l.c.InsertOne(ctx, doc); err != nil {
			if wafflemongo.IsDup(err) {
				return nil, ErrHeld
			}
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	l.log.Info("maintenance lock acquired",
		zap.String("lock", name),
		zap.String("holder", holder),
		zap.Duration("ttl", ttl))

	release := func() {
		// Release with a fresh context: the job's context may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.c.DeleteOne(rctx, bson.M{"_id": name, "holder": holder}); err != nil {
			l.log.Error("maintenance lock release failed",
				zap.String("lock", name),
				zap.Error(err))
		}
	}
	return release, nil
}
