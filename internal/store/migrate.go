package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// refField names a document reference that older write paths stored as a hex string.
type refField struct {
	Collection string
	Field      string
	Array      bool
}

var legacyRefFields = []refField{
	{Collection: CollAppointments, Field: "doctorId"},
	{Collection: CollAppointments, Field: "patientId"},
	{Collection: CollPatientQueue, Field: "doctorId"},
	{Collection: CollPatientQueue, Field: "patientId"},
	{Collection: CollPatientQueue, Field: "appointmentId"},
	{Collection: CollSchedules, Field: "doctorId"},
	{Collection: CollNotifications, Field: "doctorId"},
	{Collection: CollNotifications, Field: "patientId"},
	{Collection: CollReceptionists, Field: "linked_doctor_ids", Array: true},
}

const hexIDPattern = "^[0-9a-fA-F]{24}$"

type MigrationResult struct {
	Collection string `json:"collection"`
	Field      string `json:"field"`
	Legacy     int64  `json:"legacy"`
	Converted  int64  `json:"converted"`
}

type MigrationReport struct {
	DryRun      bool              `json:"dryRun"`
	Fields      []MigrationResult `json:"fields"`
	LegacyQueue int64             `json:"legacyQueueEntries"`
	CopiedQueue int64             `json:"copiedQueueEntries"`
	TotalLegacy int64             `json:"totalLegacy"`
}

// Clean reports whether no string-form references remain, which is the point
// at which identity.MatchAny can be replaced by plain equality.
func (r *MigrationReport) Clean() bool {
	return r.TotalLegacy == 0
}

// MigrateIDs rewrites string-form references as ObjectIDs. With dryRun it only
// counts them.
func (s *Store) MigrateIDs(ctx context.Context, dryRun bool) (*MigrationReport, error) {
	report := &MigrationReport{DryRun: dryRun}

	for _, f := range legacyRefFields {
		coll := s.Collection(f.Collection)
		filter := legacyFilter(f)

		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("count %s.%s: %w", f.Collection, f.Field, mapErr(err))
		}
		result := MigrationResult{Collection: f.Collection, Field: f.Field, Legacy: n}

		if !dryRun && n > 0 {
			res, err := coll.UpdateMany(ctx, filter, conversionPipeline(f))
			if err != nil {
				return nil, fmt.Errorf("convert %s.%s: %w", f.Collection, f.Field, mapErr(err))
			}
			result.Converted = res.ModifiedCount
		}
		report.Fields = append(report.Fields, result)
		report.TotalLegacy += n
	}

	queue := s.Queue()
	copied, err := queue.MigrateLegacy(ctx, dryRun)
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", CollLegacyPatientQueue, err)
	}
	if dryRun {
		report.LegacyQueue = copied
		report.TotalLegacy += copied
	} else {
		report.CopiedQueue = copied
	}

	s.log.Sugar().Infow("identifier migration finished", "dryRun", dryRun, "legacy", report.TotalLegacy)
	return report, nil
}

func legacyFilter(f refField) bson.M {
	match := bson.M{"$type": "string", "$regex": hexIDPattern}
	if f.Array {
		return bson.M{f.Field: bson.M{"$elemMatch": match}}
	}
	return bson.M{f.Field: match}
}

// conversionPipeline builds an update pipeline that converts the field in place.
func conversionPipeline(f refField) mongo.Pipeline {
	ref := "$" + f.Field
	var value interface{} = bson.M{"$toObjectId": ref}
	if f.Array {
		value = bson.M{"$map": bson.M{
			"input": ref,
			"as":    "id",
			"in": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{bson.M{"$type": "$$id"}, "string"}},
				bson.M{"$toObjectId": "$$id"},
				"$$id",
			}},
		}}
	}
	return mongo.Pipeline{{{Key: "$set", Value: bson.D{{Key: f.Field, Value: value}}}}}
}
