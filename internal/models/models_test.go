package models

import (
	"testing"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusPending, StatusRejected))
	assert.True(t, CanTransition(StatusConfirmed, StatusCompleted))
	assert.False(t, CanTransition(StatusRejected, StatusConfirmed))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))

	assert.ElementsMatch(t, []AppointmentStatus{StatusPending, StatusConfirmed}, AllowedFrom(StatusCancelled))
	assert.Empty(t, AllowedFrom(StatusPending))

	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, AppointmentStatus("archived").Valid())
}

func TestDateStringCoercesStoredDatetime(t *testing.T) {
	stored := time.Date(2025, 9, 14, 19, 0, 0, 0, time.UTC)
	for _, v := range []interface{}{stored, "2025-09-14T19:00:00.000Z", "2025-09-14"} {
		raw, err := bson.Marshal(bson.M{"appointmentDate": v})
		require.NoError(t, err)

		var got struct {
			AppointmentDate DateString `bson:"appointmentDate"`
		}
		require.NoError(t, bson.Unmarshal(raw, &got))
		assert.Equal(t, DateString("2025-09-14"), got.AppointmentDate)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, DateString("2025-01-02"), d)

	_, err = ParseDate("02/01/2025")
	assert.Error(t, err)
}

func TestAppointmentKeyFallsBackToID(t *testing.T) {
	a := &Appointment{ID: identity.MustParse("507f1f77bcf86cd799439011")}
	assert.Equal(t, "507f1f77bcf86cd799439011", a.Key())

	a.AppointmentKey = "APT-1"
	assert.Equal(t, "APT-1", a.Key())
}

func TestNewStatusNotification(t *testing.T) {
	now := time.Now()
	a := &Appointment{
		ID:              identity.New(),
		DoctorID:        identity.New(),
		PatientName:     "Ali",
		AppointmentDate: "2025-09-14",
		TimeSlot:        "10:00 AM",
		Status:          StatusRejected,
		RejectionReason: "doctor unavailable",
	}
	n := NewStatusNotification(a, identity.New(), now)
	assert.Equal(t, NotificationAppointmentRejected, n.Type)
	assert.Equal(t, NotificationUnread, n.Status)
	assert.Contains(t, n.Message, "doctor unavailable")

	a.Status = StatusConfirmed
	n = NewStatusNotification(a, identity.New(), now)
	assert.Equal(t, NotificationAppointmentConfirmed, n.Type)
	assert.Equal(t, a.Key(), n.AppointmentKey)
}
