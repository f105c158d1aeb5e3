package models

import (
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

var AppointmentStatuses = []AppointmentStatus{
	StatusPending, StatusConfirmed, StatusRejected, StatusCompleted, StatusCancelled,
}

// appointmentTransitions lists the statuses each status may move to.
// Anything missing from the map is terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func (s AppointmentStatus) Valid() bool {
	for _, v := range AppointmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) Terminal() bool {
	_, ok := appointmentTransitions[s]
	return !ok
}

func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns every status that may transition into to.
func AllowedFrom(to AppointmentStatus) []AppointmentStatus {
	var from []AppointmentStatus
	for _, s := range AppointmentStatuses {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

type Appointment struct {
	ID              identity.ID       `bson:"_id" json:"_id"`
	AppointmentKey  string            `bson:"appointmentKey,omitempty" json:"appointmentKey,omitempty"`
	DoctorID        identity.ID       `bson:"doctorId" json:"doctorId"`
	DoctorName      string            `bson:"doctorName,omitempty" json:"doctorName,omitempty"`
	PatientID       identity.ID       `bson:"patientId,omitempty" json:"patientId"`
	PatientName     string            `bson:"patientName" json:"patientName"`
	PatientEmail    string            `bson:"patientEmail,omitempty" json:"patientEmail,omitempty"`
	PatientPhone    string            `bson:"patientPhone,omitempty" json:"patientPhone,omitempty"`
	AppointmentDate DateString        `bson:"appointmentDate" json:"appointmentDate"`
	TimeSlot        string            `bson:"timeSlot" json:"timeSlot"`
	Status          AppointmentStatus `bson:"status" json:"status"`
	Reason          string            `bson:"reason,omitempty" json:"reason,omitempty"`
	RejectionReason string            `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	CreatedAt       time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// Key returns the appointment key, falling back to the document id for
// appointments written before keys existed.
func (a *Appointment) Key() string {
	if a.AppointmentKey != "" {
		return a.AppointmentKey
	}
	return a.ID.Hex()
}

type AppointmentFilter struct {
	DoctorIDs []identity.ID
	Status    AppointmentStatus
	Date      string
}

// RejectedAppointment is the archive record written when a receptionist rejects a request.
type RejectedAppointment struct {
	ID                    identity.ID `bson:"_id" json:"_id"`
	OriginalAppointmentID identity.ID `bson:"originalAppointmentId" json:"originalAppointmentId"`
	DoctorID              identity.ID `bson:"doctorId,omitempty" json:"doctorId"`
	PatientName           string      `bson:"patientName" json:"patientName"`
	PatientEmail          string      `bson:"patientEmail,omitempty" json:"patientEmail,omitempty"`
	AppointmentDate       DateString  `bson:"appointmentDate" json:"appointmentDate"`
	TimeSlot              string      `bson:"timeSlot" json:"timeSlot"`
	RejectionReason       string      `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	RejectedAt            time.Time   `bson:"rejectedAt" json:"rejectedAt"`
	RejectedBy            string      `bson:"rejectedBy" json:"rejectedBy"`
}
