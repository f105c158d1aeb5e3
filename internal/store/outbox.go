package store

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type OutboxRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func (r *OutboxRepository) Insert(ctx context.Context, e *models.OutboxEvent) error {
	_, err := r.coll.InsertOne(ctx, e)
	return mapErr(err)
}

// Due returns pending events whose next attempt is at or before now, oldest first.
func (r *OutboxRepository) Due(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error) {
	filter := bson.M{"state": models.OutboxPending, "nextAttemptAt": bson.M{"$lte": now}}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, findOptions)
}

func (r *OutboxRepository) Failed(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"state": models.OutboxFailed}, findOptions)
}

func (r *OutboxRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.OutboxEvent, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	return decodeEach[models.OutboxEvent](ctx, cursor, r.log)
}

func (r *OutboxRepository) MarkDone(ctx context.Context, id identity.ID, attempts int, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"state":       models.OutboxDone,
		"attempts":    attempts,
		"processedAt": at,
		"lastError":   "",
	})
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id identity.ID, attempts int, lastErr string, next time.Time) error {
	return r.set(ctx, id, bson.M{
		"attempts":      attempts,
		"lastError":     lastErr,
		"nextAttemptAt": next,
	})
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id identity.ID, attempts int, lastErr string, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"state":       models.OutboxFailed,
		"attempts":    attempts,
		"lastError":   lastErr,
		"processedAt": at,
	})
}

func (r *OutboxRepository) set(ctx context.Context, id identity.ID, fields bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.ObjectID()}, bson.M{"$set": fields})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
