package services

import (
	"context"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
	"github.com/harentsoaR/clinic-reception-api/internal/store/memstore"
)

// Transactor runs fn so that its writes commit together when the backing
// store supports it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type AppointmentRepository interface {
	List(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error)
	Get(ctx context.Context, id identity.ID) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, id identity.ID, change store.StatusChange) (*models.Appointment, error)
	Archive(ctx context.Context, rec *models.RejectedAppointment) error
}

type QueueRepository interface {
	Insert(ctx context.Context, e *models.QueueEntry) error
	ListByDoctors(ctx context.Context, doctorIDs []identity.ID) ([]models.QueueEntry, error)
	GetByKey(ctx context.Context, key string) (*models.QueueEntry, error)
	Update(ctx context.Context, key string, upd models.QueueUpdate, at time.Time) (before, after *models.QueueEntry, err error)
}

type ScheduleRepository interface {
	List(ctx context.Context, doctorID identity.ID, date models.DateString) ([]models.Schedule, error)
	AddSlot(ctx context.Context, slot models.ScheduleSlot, at time.Time) (identity.ID, error)
	RemoveSlot(ctx context.Context, slot models.ScheduleSlot, at time.Time) error
}

type NotificationRepository interface {
	Insert(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, error)
	SetStatus(ctx context.Context, id identity.ID, status models.NotificationStatus, at time.Time) (*models.Notification, error)
	Delete(ctx context.Context, id identity.ID) error
}

type ReceptionistRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Receptionist, error)
	Get(ctx context.Context, id identity.ID) (*models.Receptionist, error)
	RecordLogin(ctx context.Context, id identity.ID, passwordHash string, at time.Time) error
}

type DoctorRepository interface {
	List(ctx context.Context) ([]models.Doctor, error)
	FindByIDs(ctx context.Context, ids []identity.ID) ([]models.Doctor, error)
	Get(ctx context.Context, id identity.ID) (*models.Doctor, error)
	Upsert(ctx context.Context, d *models.Doctor, at time.Time) (bool, error)
}

type OutboxRepository interface {
	Insert(ctx context.Context, e *models.OutboxEvent) error
	Due(ctx context.Context, now time.Time, limit int) ([]models.OutboxEvent, error)
	Failed(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkDone(ctx context.Context, id identity.ID, attempts int, at time.Time) error
	MarkRetry(ctx context.Context, id identity.ID, attempts int, lastErr string, next time.Time) error
	MarkFailed(ctx context.Context, id identity.ID, attempts int, lastErr string, at time.Time) error
}

// Repositories bundles what the services need from a backing store.
type Repositories struct {
	Tx            Transactor
	Appointments  AppointmentRepository
	Queue         QueueRepository
	Schedules     ScheduleRepository
	Notifications NotificationRepository
	Receptionists ReceptionistRepository
	Doctors       DoctorRepository
	Outbox        OutboxRepository
}

// MongoRepositories adapts a *store.Store.
func MongoRepositories(s *store.Store) Repositories {
	return Repositories{
		Tx:            s,
		Appointments:  s.Appointments(),
		Queue:         s.Queue(),
		Schedules:     s.Schedules(),
		Notifications: s.Notifications(),
		Receptionists: s.Receptionists(),
		Doctors:       s.Doctors(),
		Outbox:        s.Outbox(),
	}
}

// MemoryRepositories adapts a *memstore.Store.
func MemoryRepositories(m *memstore.Store) Repositories {
	return Repositories{
		Tx:            m,
		Appointments:  m.Appointments(),
		Queue:         m.Queue(),
		Schedules:     m.Schedules(),
		Notifications: m.Notifications(),
		Receptionists: m.Receptionists(),
		Doctors:       m.Doctors(),
		Outbox:        m.Outbox(),
	}
}
