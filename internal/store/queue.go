package store

import (
	"context"
	"errors"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// QueueRepository writes to PatientQueue and still reads the misspelled
// PaitentQueue collection that older deployments populated.
type QueueRepository struct {
	coll   *mongo.Collection
	legacy *mongo.Collection
	log    *zap.Logger
}

// Insert adds a queue entry. A second entry for the same appointment key is
// rejected by the unique index and reported as ErrDuplicate.
func (r *QueueRepository) Insert(ctx context.Context, e *models.QueueEntry) error {
	_, err := r.coll.InsertOne(ctx, e)
	return mapErr(err)
}

// ListByDoctors returns entries from both collections; an appointment key
// present in both is reported once, from PatientQueue.
func (r *QueueRepository) ListByDoctors(ctx context.Context, doctorIDs []identity.ID) ([]models.QueueEntry, error) {
	filter := identity.MatchAny("doctorId", doctorIDs...)

	entries, err := r.find(ctx, r.coll, filter)
	if err != nil {
		return nil, err
	}
	legacy, err := r.find(ctx, r.legacy, filter)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.AppointmentKey] = struct{}{}
	}
	for _, e := range legacy {
		if _, dup := seen[e.AppointmentKey]; dup {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *QueueRepository) find(ctx context.Context, coll *mongo.Collection, filter bson.M) ([]models.QueueEntry, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	return decodeEach[models.QueueEntry](ctx, cursor, r.log)
}

func (r *QueueRepository) GetByKey(ctx context.Context, key string) (*models.QueueEntry, error) {
	for _, coll := range []*mongo.Collection{r.coll, r.legacy} {
		var e models.QueueEntry
		err := coll.FindOne(ctx, bson.M{"appointmentKey": key}).Decode(&e)
		if err == nil {
			return &e, nil
		}
		if err = mapErr(err); !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Update applies the non-empty fields of upd and returns the entry as it was
// before and after the update.
func (r *QueueRepository) Update(ctx context.Context, key string, upd models.QueueUpdate, at time.Time) (before, after *models.QueueEntry, err error) {
	set := bson.M{"updatedAt": at}
	if upd.QueueStatus != "" {
		set["queueStatus"] = upd.QueueStatus
	}
	if upd.Status != "" {
		set["status"] = upd.Status
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	for _, coll := range []*mongo.Collection{r.coll, r.legacy} {
		var prev models.QueueEntry
		err := coll.FindOneAndUpdate(ctx, bson.M{"appointmentKey": key}, bson.M{"$set": set}, opts).Decode(&prev)
		if err == nil {
			next := prev
			next.UpdatedAt = at
			if upd.QueueStatus != "" {
				next.QueueStatus = upd.QueueStatus
			}
			if upd.Status != "" {
				next.Status = upd.Status
			}
			return &prev, &next, nil
		}
		if err = mapErr(err); !errors.Is(err, ErrNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrNotFound
}

// MigrateLegacy moves PaitentQueue entries into PatientQueue. Entries whose key
// already exists in PatientQueue are dropped from the legacy collection
// without being copied. With dryRun it only counts the legacy entries.
func (r *QueueRepository) MigrateLegacy(ctx context.Context, dryRun bool) (int64, error) {
	if dryRun {
		n, err := r.legacy.CountDocuments(ctx, bson.M{})
		return n, mapErr(err)
	}

	cursor, err := r.legacy.Find(ctx, bson.M{})
	if err != nil {
		return 0, mapErr(err)
	}
	defer cursor.Close(ctx)

	var copied int64
	for cursor.Next(ctx) {
		var e models.QueueEntry
		if err := cursor.Decode(&e); err != nil {
			return copied, err
		}
		if e.AppointmentKey == "" {
			continue
		}
		err := r.Insert(ctx, &e)
		switch {
		case err == nil:
			copied++
		case errors.Is(err, ErrDuplicate):
		default:
			return copied, err
		}
		if _, err := r.legacy.DeleteOne(ctx, identity.MatchAny("_id", e.ID)); err != nil {
			return copied, mapErr(err)
		}
	}
	return copied, mapErr(cursor.Err())
}
