package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type AppointmentRepository struct {
	coll     *mongo.Collection
	rejected *mongo.Collection
	log      *zap.Logger
}

// StatusChange is a conditional transition: it only applies while the
// appointment is still in From.
type StatusChange struct {
	From            models.AppointmentStatus
	To              models.AppointmentStatus
	RejectionReason string
	// DoctorID, when set, is written as the appointment's doctor. Callers only
	// set it for appointments stored without one.
	DoctorID identity.ID
	At       time.Time
}

func (r *AppointmentRepository) List(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	filter := identity.MatchAny("doctorId", f.DoctorIDs...)
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Date != "" {
		filter["$or"] = appointmentDateFilter(f.Date)
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "appointmentDate", Value: 1}, {Key: "timeSlot", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	return decodeEach[models.Appointment](ctx, cursor, r.log)
}

// appointmentDateFilter matches a YYYY-MM-DD day in every shape
// appointmentDate was stored in: the plain date, an ISO timestamp string, or
// a BSON datetime within that UTC day.
func appointmentDateFilter(date string) bson.A {
	or := bson.A{
		bson.M{"appointmentDate": date},
		bson.M{"appointmentDate": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(date) + "T"}},
	}
	if day, err := time.Parse(models.DateLayout, date); err == nil {
		or = append(or, bson.M{"appointmentDate": bson.M{"$gte": day, "$lt": day.AddDate(0, 0, 1)}})
	}
	return or
}

func (r *AppointmentRepository) Get(ctx context.Context, id identity.ID) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.ObjectID()}).Decode(&a); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// UpdateStatus applies change and returns the updated appointment. It returns
// ErrConflict when the appointment exists but is no longer in change.From.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id identity.ID, change StatusChange) (*models.Appointment, error) {
	set := bson.M{"status": change.To, "updatedAt": change.At}
	if change.To == models.StatusRejected && change.RejectionReason != "" {
		set["rejectionReason"] = change.RejectionReason
	}
	if !change.DoctorID.IsZero() {
		set["doctorId"] = change.DoctorID
	}

	filter := bson.M{"_id": id.ObjectID(), "status": change.From}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Appointment
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err = mapErr(err); !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}

// Archive records a rejected appointment. Archiving the same appointment
// twice leaves a single record.
func (r *AppointmentRepository) Archive(ctx context.Context, rec *models.RejectedAppointment) error {
	setOnInsert := bson.M{
		"_id":             rec.ID,
		"doctorId":        rec.DoctorID,
		"patientName":     rec.PatientName,
		"patientEmail":    rec.PatientEmail,
		"appointmentDate": rec.AppointmentDate,
		"timeSlot":        rec.TimeSlot,
		"rejectionReason": rec.RejectionReason,
		"rejectedAt":      rec.RejectedAt,
		"rejectedBy":      rec.RejectedBy,
	}
	_, err := r.rejected.UpdateOne(ctx,
		bson.M{"originalAppointmentId": rec.OriginalAppointmentID},
		bson.M{"$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	return mapErr(err)
}
