package store

import (
	"context"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ReceptionistRepository struct {
	coll *mongo.Collection
}

func (r *ReceptionistRepository) FindByEmail(ctx context.Context, email string) (*models.Receptionist, error) {
	var rec models.Receptionist
	err := r.coll.FindOne(ctx, bson.M{"email": strings.TrimSpace(email)}).Decode(&rec)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

func (r *ReceptionistRepository) Get(ctx context.Context, id identity.ID) (*models.Receptionist, error) {
	var rec models.Receptionist
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.ObjectID()}).Decode(&rec); err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

// RecordLogin stamps lastLogin and, when passwordHash is non-empty, replaces
// the stored credential (used to upgrade legacy plaintext rows).
func (r *ReceptionistRepository) RecordLogin(ctx context.Context, id identity.ID, passwordHash string, at time.Time) error {
	set := bson.M{"lastLogin": at, "updatedAt": at}
	if passwordHash != "" {
		set["passwordHash"] = passwordHash
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.ObjectID()}, bson.M{"$set": set})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
