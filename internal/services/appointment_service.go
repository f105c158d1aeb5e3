package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
	"go.uber.org/zap"
)

// Nudger wakes the outbox worker after an event is committed.
type Nudger interface {
	Notify()
}

type nopNudger struct{}

func (nopNudger) Notify() {}

type AppointmentListInput struct {
	DoctorIDs []string
	Status    string
	Date      string
}

type UpdateAppointmentStatusInput struct {
	AppointmentID   string
	Status          string
	RejectionReason string
	DoctorID        string
}

type AppointmentService struct {
	repos Repositories
	nudge Nudger
	now   func() time.Time
	log   *zap.Logger
}

func NewAppointmentService(repos Repositories, nudge Nudger, log *zap.Logger) *AppointmentService {
	if nudge == nil {
		nudge = nopNudger{}
	}
	return &AppointmentService{repos: repos, nudge: nudge, now: time.Now, log: log}
}

func (s *AppointmentService) List(ctx context.Context, in AppointmentListInput) ([]models.Appointment, error) {
	doctorIDs, err := parseDoctorIDs(in.DoctorIDs)
	if err != nil {
		return nil, err
	}

	filter := models.AppointmentFilter{DoctorIDs: doctorIDs}
	if in.Status != "" && in.Status != "all" {
		status := models.AppointmentStatus(strings.ToLower(in.Status))
		if !status.Valid() {
			return nil, exceptions.ErrInvalidValue("status", in.Status, appointmentStatusNames())
		}
		filter.Status = status
	}
	if in.Date != "" {
		date, err := models.ParseDate(in.Date)
		if err != nil {
			return nil, exceptions.ErrInvalidValue("date", in.Date, []string{models.DateLayout})
		}
		filter.Date = string(date)
	}

	appointments, err := s.repos.Appointments.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "Appointments", "list appointments")
	}
	return appointments, nil
}

// UpdateStatus moves an appointment to a new status and records the change in
// the outbox. Repeating the current status succeeds without a new event.
func (s *AppointmentService) UpdateStatus(ctx context.Context, in UpdateAppointmentStatusInput) (*models.Appointment, error) {
	requestID := constvars.RequestID(ctx)

	id, err := parseID(strings.TrimSpace(in.AppointmentID), "appointmentId")
	if err != nil {
		return nil, err
	}
	to := models.AppointmentStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if to == "" {
		return nil, exceptions.ErrMissingField("status")
	}
	if !to.Valid() {
		return nil, exceptions.ErrInvalidValue("status", in.Status, appointmentStatusNames())
	}
	var doctorID identity.ID
	if raw := strings.TrimSpace(in.DoctorID); raw != "" {
		if doctorID, err = parseID(raw, "doctorId"); err != nil {
			return nil, err
		}
	}

	current, err := s.repos.Appointments.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "Appointment", "get appointment")
	}
	if current.Status == to {
		return current, nil
	}
	if !models.CanTransition(current.Status, to) {
		return nil, exceptions.ErrInvalidTransition(string(current.Status), string(to))
	}

	change := store.StatusChange{
		From:            current.Status,
		To:              to,
		RejectionReason: strings.TrimSpace(in.RejectionReason),
		At:              s.now().UTC(),
	}
	if current.DoctorID.IsZero() {
		change.DoctorID = doctorID
	}

	var updated *models.Appointment
	err = s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repos.Appointments.UpdateStatus(ctx, id, change)
		if err != nil {
			return err
		}
		event := models.NewAppointmentEvent(change.From, a, change.At)
		event.Actor = constvars.ReceptionistID(ctx)
		if err := s.repos.Outbox.Insert(ctx, event); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if errors.Is(err, store.ErrConflict) {
		return s.resolveConflict(ctx, id, to)
	}
	if err != nil {
		s.log.Error("appointmentService.UpdateStatus failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String("appointmentId", id.Hex()),
			zap.Error(err),
		)
		return nil, storeError(err, "Appointment", "update appointment status")
	}

	s.nudge.Notify()
	s.log.Info("appointment status changed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String("appointmentId", id.Hex()),
		zap.String("from", string(change.From)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

// resolveConflict handles an appointment that changed between the read and
// the conditional write. Another request reaching the same status counts as
// success.
func (s *AppointmentService) resolveConflict(ctx context.Context, id identity.ID, to models.AppointmentStatus) (*models.Appointment, error) {
	latest, err := s.repos.Appointments.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, "Appointment", "get appointment")
	}
	if latest.Status == to {
		return latest, nil
	}
	return nil, exceptions.ErrInvalidTransition(string(latest.Status), string(to))
}
