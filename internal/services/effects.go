package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/relay"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
	"go.uber.org/zap"
)

// Publisher delivers an event to everyone following a doctor.
type Publisher interface {
	Publish(ctx context.Context, doctorID identity.ID, kind string, data interface{}) error
}

// EffectRunner performs the side effects of a committed status change. Every
// step except the SMS is safe to repeat, so a failed event is simply handled
// again. Events overtaken by a later transition are dropped.
type EffectRunner struct {
	repos         Repositories
	notifications *NotificationService
	publisher     Publisher
	now           func() time.Time
	log           *zap.Logger
}

func NewEffectRunner(repos Repositories, notifications *NotificationService, publisher Publisher, log *zap.Logger) *EffectRunner {
	return &EffectRunner{repos: repos, notifications: notifications, publisher: publisher, now: time.Now, log: log}
}

// Handle runs every step for e and returns the joined errors of the steps
// that failed. Publishing never fails an event.
func (r *EffectRunner) Handle(ctx context.Context, e models.OutboxEvent) error {
	switch e.Type {
	case models.EventAppointmentStatusChanged:
		return r.appointmentChanged(ctx, e)
	case models.EventQueueStatusChanged:
		if e.QueueEntry == nil {
			return fmt.Errorf("event %s has no queue entry snapshot", e.ID.Hex())
		}
		r.publish(ctx, e.DoctorID, relay.EventQueueUpdate, e.QueueEntry)
		return nil
	default:
		return fmt.Errorf("unknown outbox event type %q", e.Type)
	}
}

func (r *EffectRunner) appointmentChanged(ctx context.Context, e models.OutboxEvent) error {
	if e.Appointment == nil {
		return fmt.Errorf("event %s has no appointment snapshot", e.ID.Hex())
	}
	a := e.Appointment

	// A later transition owns the slot, the queue entry and the relay from
	// here on; replaying this one would undo its effects.
	current, err := r.repos.Appointments.Get(ctx, a.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		r.log.Warn("appointment gone; skipping side effects",
			zap.String("eventId", e.ID.Hex()),
			zap.String("appointmentKey", e.AppointmentKey),
		)
		return nil
	case err != nil:
		return fmt.Errorf("load appointment: %w", err)
	case current.Status != a.Status:
		r.log.Info("appointment moved on; skipping superseded side effects",
			zap.String("eventId", e.ID.Hex()),
			zap.String("appointmentKey", e.AppointmentKey),
			zap.String("eventStatus", string(a.Status)),
			zap.String("currentStatus", string(current.Status)),
		)
		return nil
	}

	var (
		errs  []error
		entry *models.QueueEntry
	)
	switch a.Status {
	case models.StatusConfirmed:
		if entry, err = r.ensureQueueEntry(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("queue entry: %w", err))
		}
		if err := r.removeSlot(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("remove slot: %w", err))
		}
		errs = append(errs, r.notify(ctx, a, e.ID, len(errs) == 0)...)

	case models.StatusRejected:
		if err := r.restoreSlot(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("restore slot: %w", err))
		}
		if err := r.archive(ctx, a, e); err != nil {
			errs = append(errs, fmt.Errorf("archive: %w", err))
		}
		errs = append(errs, r.notify(ctx, a, e.ID, len(errs) == 0)...)

	case models.StatusCancelled:
		if err := r.restoreSlot(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("restore slot: %w", err))
		}
		if entry, err = r.setQueueStatus(ctx, a, models.QueueCancelled); err != nil {
			errs = append(errs, fmt.Errorf("cancel queue entry: %w", err))
		}

	case models.StatusCompleted:
		if entry, err = r.setQueueStatus(ctx, a, models.QueueCompleted); err != nil {
			errs = append(errs, fmt.Errorf("complete queue entry: %w", err))
		}
	}

	r.publish(ctx, a.DoctorID, relay.EventAppointmentUpdate, a)
	if entry != nil {
		r.publish(ctx, a.DoctorID, relay.EventQueueUpdate, entry)
	}
	return errors.Join(errs...)
}

// ensureQueueEntry inserts the waiting entry for a, or returns the existing
// one when the appointment key is already queued.
func (r *EffectRunner) ensureQueueEntry(ctx context.Context, a *models.Appointment) (*models.QueueEntry, error) {
	entry := models.NewQueueEntry(a, r.now().UTC())
	err := r.repos.Queue.Insert(ctx, entry)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return nil, err
	}
	return r.repos.Queue.GetByKey(ctx, entry.AppointmentKey)
}

func (r *EffectRunner) setQueueStatus(ctx context.Context, a *models.Appointment, status models.QueueStatus) (*models.QueueEntry, error) {
	_, after, err := r.repos.Queue.Update(ctx, a.Key(), models.QueueUpdate{QueueStatus: status, Status: a.Status}, r.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		// Appointments cancelled before confirmation were never queued.
		return nil, nil
	}
	return after, err
}

func (r *EffectRunner) removeSlot(ctx context.Context, a *models.Appointment) error {
	slot, ok := slotOf(a)
	if !ok {
		return nil
	}
	err := r.repos.Schedules.RemoveSlot(ctx, slot, r.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (r *EffectRunner) restoreSlot(ctx context.Context, a *models.Appointment) error {
	slot, ok := slotOf(a)
	if !ok {
		return nil
	}
	_, err := r.repos.Schedules.AddSlot(ctx, slot, r.now().UTC())
	return err
}

func slotOf(a *models.Appointment) (models.ScheduleSlot, bool) {
	if a.DoctorID.IsZero() || a.AppointmentDate == "" || a.TimeSlot == "" {
		return models.ScheduleSlot{}, false
	}
	return models.ScheduleSlot{DoctorID: a.DoctorID, Date: a.AppointmentDate, TimeSlot: a.TimeSlot}, true
}

func (r *EffectRunner) archive(ctx context.Context, a *models.Appointment, e models.OutboxEvent) error {
	rejectedBy := e.Actor
	if rejectedBy == "" {
		rejectedBy = RoleReceptionist
	}
	return r.repos.Appointments.Archive(ctx, &models.RejectedAppointment{
		ID:                    identity.New(),
		OriginalAppointmentID: a.ID,
		DoctorID:              a.DoctorID,
		PatientName:           a.PatientName,
		PatientEmail:          a.PatientEmail,
		AppointmentDate:       a.AppointmentDate,
		TimeSlot:              a.TimeSlot,
		RejectionReason:       a.RejectionReason,
		RejectedAt:            e.CreatedAt,
		RejectedBy:            rejectedBy,
	})
}

// notify records the inbox entry, then queues the patient SMS when sendSMS is
// set. Callers clear it while an earlier step of the event is still failing.
func (r *EffectRunner) notify(ctx context.Context, a *models.Appointment, eventID identity.ID, sendSMS bool) []error {
	if err := r.notifications.RecordStatusChange(ctx, a, eventID); err != nil {
		return []error{fmt.Errorf("notification: %w", err)}
	}
	if !sendSMS {
		return nil
	}
	if err := r.notifications.SendStatusSMS(ctx, a, eventID); err != nil {
		return []error{fmt.Errorf("sms: %w", err)}
	}
	return nil
}

func (r *EffectRunner) publish(ctx context.Context, doctorID identity.ID, kind string, data interface{}) {
	if r.publisher == nil || doctorID.IsZero() {
		return
	}
	if err := r.publisher.Publish(ctx, doctorID, kind, data); err != nil {
		r.log.Warn("relay publish failed",
			zap.String("doctorId", doctorID.Hex()),
			zap.String("event", kind),
			zap.Error(err),
		)
	}
}
