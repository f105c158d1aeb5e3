package models

import (
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

type Schedule struct {
	ID             identity.ID `bson:"_id" json:"_id"`
	DoctorID       identity.ID `bson:"doctorId" json:"doctorId"`
	Date           DateString  `bson:"date" json:"date"`
	AvailableSlots []string    `bson:"availableSlots" json:"availableSlots"`
	CreatedAt      time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updatedAt" json:"updatedAt"`
}

type ScheduleSlot struct {
	DoctorID identity.ID
	Date     DateString
	TimeSlot string
}
