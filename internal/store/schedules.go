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

type ScheduleRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func (r *ScheduleRepository) List(ctx context.Context, doctorID identity.ID, date models.DateString) ([]models.Schedule, error) {
	filter := identity.MatchAny("doctorId", doctorID)
	if date != "" {
		filter["date"] = date
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	return decodeEach[models.Schedule](ctx, cursor, r.log)
}

// AddSlot adds the slot to the doctor's schedule for the date, creating the
// schedule when none exists. The returned id is set only when a schedule was
// created.
func (r *ScheduleRepository) AddSlot(ctx context.Context, slot models.ScheduleSlot, at time.Time) (identity.ID, error) {
	filter := identity.MatchAny("doctorId", slot.DoctorID)
	filter["date"] = slot.Date
	update := bson.M{
		"$addToSet": bson.M{"availableSlots": slot.TimeSlot},
		"$set":      bson.M{"updatedAt": at},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return identity.ID{}, mapErr(err)
	}
	if res.MatchedCount > 0 {
		return identity.ID{}, nil
	}

	id := identity.New()
	update["$setOnInsert"] = bson.M{"_id": id, "createdAt": at}
	res, err = r.coll.UpdateOne(ctx,
		bson.M{"doctorId": slot.DoctorID, "date": slot.Date},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Another writer created the schedule in between; the unique
		// (doctorId, date) index makes the retry land on it.
		if errors.Is(mapErr(err), ErrDuplicate) {
			_, err = r.coll.UpdateOne(ctx, filter, update)
			return identity.ID{}, mapErr(err)
		}
		return identity.ID{}, mapErr(err)
	}
	if res.UpsertedCount == 0 {
		return identity.ID{}, nil
	}
	return id, nil
}

// RemoveSlot pulls the slot from every schedule of the doctor for the date.
// It returns ErrNotFound when the doctor has no schedule for that date.
func (r *ScheduleRepository) RemoveSlot(ctx context.Context, slot models.ScheduleSlot, at time.Time) error {
	filter := identity.MatchAny("doctorId", slot.DoctorID)
	filter["date"] = slot.Date

	res, err := r.coll.UpdateMany(ctx, filter, bson.M{
		"$pull": bson.M{"availableSlots": slot.TimeSlot},
		"$set":  bson.M{"updatedAt": at},
	})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
