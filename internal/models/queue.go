package models

import (
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

type QueueStatus string

const (
	QueueWaiting   QueueStatus = "waiting"
	QueueInSession QueueStatus = "in-session"
	QueueCompleted QueueStatus = "completed"
	QueueCancelled QueueStatus = "cancelled"
)

var QueueStatuses = []QueueStatus{QueueWaiting, QueueInSession, QueueCompleted, QueueCancelled}

func (s QueueStatus) Valid() bool {
	for _, v := range QueueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type QueueEntry struct {
	ID               identity.ID       `bson:"_id" json:"_id"`
	AppointmentKey   string            `bson:"appointmentKey" json:"appointmentKey"`
	AppointmentID    identity.ID       `bson:"appointmentId,omitempty" json:"appointmentId"`
	DoctorID         identity.ID       `bson:"doctorId" json:"doctorId"`
	DoctorName       string            `bson:"doctorName,omitempty" json:"doctorName,omitempty"`
	PatientID        identity.ID       `bson:"patientId,omitempty" json:"patientId"`
	PatientName      string            `bson:"patientName" json:"patientName"`
	PatientPhone     string            `bson:"patientPhone,omitempty" json:"patientPhone,omitempty"`
	AppointmentDate  DateString        `bson:"appointmentDate,omitempty" json:"appointmentDate,omitempty"`
	SessionStartTime string            `bson:"sessionStartTime" json:"sessionStartTime"`
	Status           AppointmentStatus `bson:"status,omitempty" json:"status,omitempty"`
	QueueStatus      QueueStatus       `bson:"queueStatus" json:"queueStatus"`
	CreatedAt        time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// QueueUpdate carries the optional fields of a queue PATCH.
type QueueUpdate struct {
	QueueStatus QueueStatus
	Status      AppointmentStatus
}

func NewQueueEntry(a *Appointment, now time.Time) *QueueEntry {
	return &QueueEntry{
		ID:               identity.New(),
		AppointmentKey:   a.Key(),
		AppointmentID:    a.ID,
		DoctorID:         a.DoctorID,
		DoctorName:       a.DoctorName,
		PatientID:        a.PatientID,
		PatientName:      a.PatientName,
		PatientPhone:     a.PatientPhone,
		AppointmentDate:  a.AppointmentDate,
		SessionStartTime: a.TimeSlot,
		Status:           a.Status,
		QueueStatus:      QueueWaiting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
