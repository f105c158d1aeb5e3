package models

import (
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

type OutboxEventType string

const (
	EventAppointmentStatusChanged OutboxEventType = "appointment.status_changed"
	EventQueueStatusChanged       OutboxEventType = "queue.status_changed"
)

type OutboxState string

const (
	OutboxPending OutboxState = "pending"
	OutboxDone    OutboxState = "done"
	OutboxFailed  OutboxState = "failed"
)

// OutboxEvent records a committed state change whose side effects still have
// to run. It is written together with the change it describes.
type OutboxEvent struct {
	ID             identity.ID     `bson:"_id" json:"_id"`
	Type           OutboxEventType `bson:"type" json:"type"`
	DoctorID       identity.ID     `bson:"doctorId" json:"doctorId"`
	AppointmentID  identity.ID     `bson:"appointmentId,omitempty" json:"appointmentId"`
	AppointmentKey string          `bson:"appointmentKey" json:"appointmentKey"`
	From           string          `bson:"from,omitempty" json:"from,omitempty"`
	To             string          `bson:"to" json:"to"`
	Appointment    *Appointment    `bson:"appointment,omitempty" json:"appointment,omitempty"`
	QueueEntry     *QueueEntry     `bson:"queueEntry,omitempty" json:"queueEntry,omitempty"`
	// Actor is the receptionist whose request produced the event.
	Actor         string      `bson:"actor,omitempty" json:"actor,omitempty"`
	State         OutboxState `bson:"state" json:"state"`
	Attempts      int         `bson:"attempts" json:"attempts"`
	LastError     string      `bson:"lastError,omitempty" json:"lastError,omitempty"`
	NextAttemptAt time.Time   `bson:"nextAttemptAt" json:"nextAttemptAt"`
	CreatedAt     time.Time   `bson:"createdAt" json:"createdAt"`
	ProcessedAt   *time.Time  `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
}

func NewAppointmentEvent(from AppointmentStatus, a *Appointment, now time.Time) *OutboxEvent {
	snapshot := *a
	return &OutboxEvent{
		ID:             identity.New(),
		Type:           EventAppointmentStatusChanged,
		DoctorID:       a.DoctorID,
		AppointmentID:  a.ID,
		AppointmentKey: a.Key(),
		From:           string(from),
		To:             string(a.Status),
		Appointment:    &snapshot,
		State:          OutboxPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
	}
}

func NewQueueEvent(from QueueStatus, q *QueueEntry, now time.Time) *OutboxEvent {
	snapshot := *q
	return &OutboxEvent{
		ID:             identity.New(),
		Type:           EventQueueStatusChanged,
		DoctorID:       q.DoctorID,
		AppointmentID:  q.AppointmentID,
		AppointmentKey: q.AppointmentKey,
		From:           string(from),
		To:             string(q.QueueStatus),
		QueueEntry:     &snapshot,
		State:          OutboxPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
	}
}
