package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

const doctorHex = "507f1f77bcf86cd799439011"

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func TestAppointmentListMatchesBothIDForms(t *testing.T) {
	mt := newMock(t)

	mt.Run("string and objectid doctor references", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		doctorOID, _ := primitive.ObjectIDFromHex(doctorHex)
		stored := time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC)

		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clin.appointments", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "doctorId", Value: doctorHex},
				{Key: "patientName", Value: "Ayesha"},
				{Key: "appointmentDate", Value: "2025-09-14"},
				{Key: "timeSlot", Value: "10:00 AM"},
				{Key: "status", Value: "pending"},
			},
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "doctorId", Value: doctorOID},
				{Key: "patientName", Value: "Bilal"},
				{Key: "appointmentDate", Value: stored},
				{Key: "timeSlot", Value: "11:00 AM"},
				{Key: "status", Value: "confirmed"},
			},
		))

		id := identity.MustParse(doctorHex)
		got, err := s.Appointments().List(context.Background(), models.AppointmentFilter{DoctorIDs: []identity.ID{id}})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		for _, a := range got {
			assert.Equal(mt, id, a.DoctorID)
			assert.Equal(mt, models.DateString("2025-09-14"), a.AppointmentDate)
		}
	})

	mt.Run("valid but unknown doctor yields empty list", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clin.appointments", mtest.FirstBatch))

		got, err := s.Appointments().List(context.Background(), models.AppointmentFilter{DoctorIDs: []identity.ID{identity.New()}})
		require.NoError(mt, err)
		assert.NotNil(mt, got)
		assert.Empty(mt, got)
	})
}

func TestAppointmentListDateMatchesLegacyShapes(t *testing.T) {
	mt := newMock(t)

	mt.Run("date filter covers strings and datetimes", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clin.appointments", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "doctorId", Value: doctorHex},
				{Key: "appointmentDate", Value: time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC)},
				{Key: "status", Value: "pending"},
			},
		))

		got, err := s.Appointments().List(context.Background(), models.AppointmentFilter{
			DoctorIDs: []identity.ID{identity.MustParse(doctorHex)},
			Date:      "2025-09-14",
		})
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, models.DateString("2025-09-14"), got[0].AppointmentDate)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		branches, err := started.Command.LookupErr("filter", "$or")
		require.NoError(mt, err)
		values, err := branches.Array().Values()
		require.NoError(mt, err)
		assert.Len(mt, values, 3)
	})
}

func TestAppointmentDateFilter(t *testing.T) {
	day := time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, bson.A{
		bson.M{"appointmentDate": "2025-09-14"},
		bson.M{"appointmentDate": primitive.Regex{Pattern: "^2025-09-14T"}},
		bson.M{"appointmentDate": bson.M{"$gte": day, "$lt": day.AddDate(0, 0, 1)}},
	}, appointmentDateFilter("2025-09-14"))
}

func TestListSkipsUndecodableDocuments(t *testing.T) {
	mt := newMock(t)

	mt.Run("non-hex reference", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clin.appointments", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "doctorId", Value: doctorHex},
				{Key: "patientId", Value: "walk-in"},
				{Key: "patientName", Value: "Walk-in"},
				{Key: "status", Value: "pending"},
			},
			bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "doctorId", Value: doctorHex},
				{Key: "patientId", Value: "undefined"},
				{Key: "patientName", Value: "Bilal"},
				{Key: "status", Value: "pending"},
			},
		))

		got, err := s.Appointments().List(context.Background(), models.AppointmentFilter{DoctorIDs: []identity.ID{identity.MustParse(doctorHex)}})
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "Bilal", got[0].PatientName)
		assert.True(mt, got[0].PatientID.IsZero())
	})
}

func TestAppointmentGetNotFound(t *testing.T) {
	mt := newMock(t)

	mt.Run("missing", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "clin.appointments", mtest.FirstBatch))

		_, err := s.Appointments().Get(context.Background(), identity.New())
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestAppointmentUpdateStatus(t *testing.T) {
	mt := newMock(t)
	id := identity.New()
	change := StatusChange{From: models.StatusPending, To: models.StatusConfirmed, At: time.Now()}

	mt.Run("applied", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id.ObjectID()},
			{Key: "doctorId", Value: doctorHex},
			{Key: "status", Value: "confirmed"},
		}}))

		a, err := s.Appointments().UpdateStatus(context.Background(), id, change)
		require.NoError(mt, err)
		assert.Equal(mt, models.StatusConfirmed, a.Status)
	})

	mt.Run("status moved on", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "clin.appointments", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: id.ObjectID()},
				{Key: "status", Value: "rejected"},
			}),
		)

		_, err := s.Appointments().UpdateStatus(context.Background(), id, change)
		assert.ErrorIs(mt, err, ErrConflict)
	})
}

func TestQueueInsertDuplicateKey(t *testing.T) {
	mt := newMock(t)

	mt.Run("duplicate appointment key", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: clin.PatientQueue index: uniq_appointment_key",
		}))

		err := s.Queue().Insert(context.Background(), &models.QueueEntry{ID: identity.New(), AppointmentKey: "APT-1"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})
}

func TestQueueListMergesLegacyCollection(t *testing.T) {
	mt := newMock(t)

	mt.Run("legacy entries deduplicated by key", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "clin.PatientQueue", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: primitive.NewObjectID()},
				{Key: "appointmentKey", Value: "APT-1"},
				{Key: "doctorId", Value: doctorHex},
				{Key: "queueStatus", Value: "in-session"},
			}),
			mtest.CreateCursorResponse(0, "clin.PaitentQueue", mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: primitive.NewObjectID()},
					{Key: "appointmentKey", Value: "APT-1"},
					{Key: "doctorId", Value: doctorHex},
					{Key: "queueStatus", Value: "waiting"},
				},
				bson.D{
					{Key: "_id", Value: primitive.NewObjectID()},
					{Key: "appointmentKey", Value: "APT-2"},
					{Key: "doctorId", Value: doctorHex},
					{Key: "queueStatus", Value: "waiting"},
				},
			),
		)

		got, err := s.Queue().ListByDoctors(context.Background(), []identity.ID{identity.MustParse(doctorHex)})
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, models.QueueInSession, got[0].QueueStatus)
		assert.Equal(mt, "APT-2", got[1].AppointmentKey)
	})
}

func TestNotificationInsertIsIdempotentPerEvent(t *testing.T) {
	mt := newMock(t)

	mt.Run("duplicate source event", func(mt *mtest.T) {
		s := New(mt.DB, false, zap.NewNop())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}))

		err := s.Notifications().Insert(context.Background(), &models.Notification{ID: identity.New(), SourceEventID: identity.New()})
		assert.NoError(mt, err)
	})
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(context.DeadlineExceeded), ErrUnavailable)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

func TestLegacyFilter(t *testing.T) {
	scalar := legacyFilter(refField{Collection: CollAppointments, Field: "doctorId"})
	assert.Equal(t, bson.M{"doctorId": bson.M{"$type": "string", "$regex": hexIDPattern}}, scalar)

	array := legacyFilter(refField{Collection: CollReceptionists, Field: "linked_doctor_ids", Array: true})
	assert.Contains(t, array["linked_doctor_ids"], "$elemMatch")
}
