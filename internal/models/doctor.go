package models

import (
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

type Doctor struct {
	ID             identity.ID `bson:"_id" json:"id"`
	Name           string      `bson:"name" json:"name"`
	Specialization string      `bson:"specialization" json:"specialization"`
	Email          string      `bson:"email,omitempty" json:"email,omitempty"`
	Phone          string      `bson:"phone,omitempty" json:"phone,omitempty"`
	Department     string      `bson:"department,omitempty" json:"department,omitempty"`
	CreatedAt      time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// DoctorSummary is the shape returned alongside a receptionist profile.
type DoctorSummary struct {
	ID             identity.ID `json:"id"`
	Name           string      `json:"name"`
	Specialization string      `json:"specialization"`
}

func (d *Doctor) Summary() DoctorSummary {
	return DoctorSummary{ID: d.ID, Name: d.Name, Specialization: d.Specialization}
}
