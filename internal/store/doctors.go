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

type DoctorRepository struct {
	coll *mongo.Collection
	log  *zap.Logger
}

func (r *DoctorRepository) List(ctx context.Context) ([]models.Doctor, error) {
	return r.find(ctx, bson.M{})
}

// FindByIDs returns the doctors among ids that exist; unknown ids are skipped.
func (r *DoctorRepository) FindByIDs(ctx context.Context, ids []identity.ID) ([]models.Doctor, error) {
	if len(ids) == 0 {
		return []models.Doctor{}, nil
	}
	return r.find(ctx, identity.MatchAny("_id", ids...))
}

func (r *DoctorRepository) find(ctx context.Context, filter bson.M) ([]models.Doctor, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	return decodeEach[models.Doctor](ctx, cursor, r.log)
}

func (r *DoctorRepository) Get(ctx context.Context, id identity.ID) (*models.Doctor, error) {
	var d models.Doctor
	if err := r.coll.FindOne(ctx, identity.MatchAny("_id", id)).Decode(&d); err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

// Upsert writes d under its id, keeping the original createdAt. It reports
// whether a new document was created.
func (r *DoctorRepository) Upsert(ctx context.Context, d *models.Doctor, at time.Time) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": d.ID},
		bson.M{
			"$set": bson.M{
				"name":           d.Name,
				"specialization": d.Specialization,
				"email":          d.Email,
				"phone":          d.Phone,
				"department":     d.Department,
				"updatedAt":      at,
			},
			"$setOnInsert": bson.M{"createdAt": at},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, mapErr(err)
	}
	return res.UpsertedCount > 0, nil
}
