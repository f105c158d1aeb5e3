package models

import (
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
)

const ReceptionistActive = "active"

type Receptionist struct {
	ID              identity.ID   `bson:"_id" json:"id"`
	Name            string        `bson:"name" json:"name"`
	Email           string        `bson:"email" json:"email"`
	Phone           string        `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash    string        `bson:"passwordHash" json:"-"` // bcrypt, or plaintext on rows not yet upgraded
	LinkedDoctorIDs []identity.ID `bson:"linked_doctor_ids" json:"linkedDoctorIds"`
	Status          string        `bson:"status,omitempty" json:"status,omitempty"`
	LastLogin       *time.Time    `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Active treats a missing status as active; older rows never set one.
func (r *Receptionist) Active() bool {
	return r.Status == "" || r.Status == ReceptionistActive
}

type ReceptionistProfile struct {
	ID              identity.ID   `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	LinkedDoctorIDs []identity.ID `json:"linkedDoctorIds"`
}

func (r *Receptionist) Profile() ReceptionistProfile {
	return ReceptionistProfile{ID: r.ID, Name: r.Name, Email: r.Email, LinkedDoctorIDs: r.LinkedDoctorIDs}
}
