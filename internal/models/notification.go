package models

import (
	"fmt"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

type NotificationType string

const (
	NotificationAppointmentConfirmed NotificationType = "appointment_confirmed"
	NotificationAppointmentRejected  NotificationType = "appointment_rejected"
)

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 100
)

type Notification struct {
	ID              identity.ID        `bson:"_id" json:"_id"`
	Type            NotificationType   `bson:"type" json:"type"`
	DoctorID        identity.ID        `bson:"doctorId" json:"doctorId"`
	DoctorName      string             `bson:"doctorName,omitempty" json:"doctorName"`
	PatientID       identity.ID        `bson:"patientId,omitempty" json:"patientId"`
	PatientName     string             `bson:"patientName" json:"patientName"`
	AppointmentDate DateString         `bson:"appointmentDate" json:"appointmentDate"`
	AppointmentTime string             `bson:"appointmentTime" json:"appointmentTime"`
	AppointmentKey  string             `bson:"appointmentKey" json:"appointmentKey"`
	Message         string             `bson:"message" json:"message"`
	Status          NotificationStatus `bson:"status" json:"status"`
	RejectionReason string             `bson:"rejectionReason,omitempty" json:"rejectionReason"`
	// SourceEventID ties the notification to the outbox event that produced it.
	SourceEventID identity.ID `bson:"sourceEventId,omitempty" json:"-"`
	CreatedAt     time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time   `bson:"updatedAt" json:"updatedAt"`
}

type NotificationFilter struct {
	DoctorID identity.ID
	Status   NotificationStatus
	Limit    int64
}

func NewStatusNotification(a *Appointment, eventID identity.ID, now time.Time) *Notification {
	n := &Notification{
		ID:              identity.New(),
		DoctorID:        a.DoctorID,
		DoctorName:      a.DoctorName,
		PatientID:       a.PatientID,
		PatientName:     a.PatientName,
		AppointmentDate: a.AppointmentDate,
		AppointmentTime: a.TimeSlot,
		AppointmentKey:  a.Key(),
		Status:          NotificationUnread,
		SourceEventID:   eventID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	switch a.Status {
	case StatusRejected:
		n.Type = NotificationAppointmentRejected
		n.RejectionReason = a.RejectionReason
		n.Message = fmt.Sprintf("Appointment for %s on %s at %s was rejected", a.PatientName, a.AppointmentDate, a.TimeSlot)
		if a.RejectionReason != "" {
			n.Message += ": " + a.RejectionReason
		}
	default:
		n.Type = NotificationAppointmentConfirmed
		n.Message = fmt.Sprintf("Appointment for %s on %s at %s was confirmed", a.PatientName, a.AppointmentDate, a.TimeSlot)
	}
	return n
}
