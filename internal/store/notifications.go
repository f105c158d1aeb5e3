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

type NotificationRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

// Insert stores n. A notification already recorded for the same source event
// is treated as written.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	_, err := r.coll.InsertOne(ctx, n)
	if err = mapErr(err); errors.Is(err, ErrDuplicate) && !n.SourceEventID.IsZero() {
		return nil
	}
	return err
}

func (r *NotificationRepository) List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, error) {
	filter := bson.M{}
	if !f.DoctorID.IsZero() {
		filter = identity.MatchAny("doctorId", f.DoctorID)
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(f.Limit)
	cursor, err := r.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	return decodeEach[models.Notification](ctx, cursor, r.log)
}

func (r *NotificationRepository) SetStatus(ctx context.Context, id identity.ID, status models.NotificationStatus, at time.Time) (*models.Notification, error) {
	var n models.Notification
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id.ObjectID()},
		bson.M{"$set": bson.M{"status": status, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return nil, mapErr(err)
	}
	return &n, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id identity.ID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.ObjectID()})
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
