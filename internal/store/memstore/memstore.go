// Package memstore is an in-memory implementation of the repositories. It
// backs STORE_DRIVER=memory and the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
)

type scheduleKey struct {
	doctorID identity.ID
	date     models.DateString
}

type Store struct {
	mu            sync.RWMutex
	appointments  map[identity.ID]models.Appointment
	rejected      map[identity.ID]models.RejectedAppointment
	queue         map[string]models.QueueEntry
	schedules     map[scheduleKey]models.Schedule
	notifications map[identity.ID]models.Notification
	receptionists map[identity.ID]models.Receptionist
	doctors       map[identity.ID]models.Doctor
	outbox        map[identity.ID]models.OutboxEvent
}

func New() *Store {
	return &Store{
		appointments:  make(map[identity.ID]models.Appointment),
		rejected:      make(map[identity.ID]models.RejectedAppointment),
		queue:         make(map[string]models.QueueEntry),
		schedules:     make(map[scheduleKey]models.Schedule),
		notifications: make(map[identity.ID]models.Notification),
		receptionists: make(map[identity.ID]models.Receptionist),
		doctors:       make(map[identity.ID]models.Doctor),
		outbox:        make(map[identity.ID]models.OutboxEvent),
	}
}

// WithTransaction runs fn directly; each repository call is atomic on its own.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) Counts(context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int64{
		store.CollReceptionists: int64(len(s.receptionists)),
		store.CollDoctors:       int64(len(s.doctors)),
		store.CollAppointments:  int64(len(s.appointments)),
		store.CollNotifications: int64(len(s.notifications)),
		store.CollPatientQueue:  int64(len(s.queue)),
		store.CollSchedules:     int64(len(s.schedules)),
	}, nil
}

// PutAppointment stores a, replacing any appointment with the same id.
func (s *Store) PutAppointment(a models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments[a.ID] = a
}

func (s *Store) PutReceptionist(r models.Receptionist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.LinkedDoctorIDs = append([]identity.ID(nil), r.LinkedDoctorIDs...)
	s.receptionists[r.ID] = r
}

func (s *Store) PutSchedule(sc models.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc.AvailableSlots = append([]string(nil), sc.AvailableSlots...)
	s.schedules[scheduleKey{sc.DoctorID, sc.Date}] = sc
}

// Rejected returns the archive record for an appointment, if any.
func (s *Store) Rejected(appointmentID identity.ID) (models.RejectedAppointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rejected[appointmentID]
	return rec, ok
}

func (s *Store) Appointments() *Appointments   { return &Appointments{s} }
func (s *Store) Queue() *Queue                 { return &Queue{s} }
func (s *Store) Schedules() *Schedules         { return &Schedules{s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s} }
func (s *Store) Receptionists() *Receptionists { return &Receptionists{s} }
func (s *Store) Doctors() *Doctors             { return &Doctors{s} }
func (s *Store) Outbox() *Outbox               { return &Outbox{s} }

func containsID(ids []identity.ID, id identity.ID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// --- appointments ---

type Appointments struct{ s *Store }

func (r *Appointments) List(_ context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.Appointment{}
	for _, a := range r.s.appointments {
		if !containsID(f.DoctorIDs, a.DoctorID) {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Date != "" && string(a.AppointmentDate) != f.Date {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate != out[j].AppointmentDate {
			return out[i].AppointmentDate < out[j].AppointmentDate
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}

func (r *Appointments) Get(_ context.Context, id identity.ID) (*models.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (r *Appointments) UpdateStatus(_ context.Context, id identity.ID, change store.StatusChange) (*models.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.Status != change.From {
		return nil, store.ErrConflict
	}
	a.Status = change.To
	a.UpdatedAt = change.At
	if change.To == models.StatusRejected && change.RejectionReason != "" {
		a.RejectionReason = change.RejectionReason
	}
	if !change.DoctorID.IsZero() {
		a.DoctorID = change.DoctorID
	}
	r.s.appointments[id] = a
	return &a, nil
}

func (r *Appointments) Archive(_ context.Context, rec *models.RejectedAppointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.rejected[rec.OriginalAppointmentID]; !exists {
		r.s.rejected[rec.OriginalAppointmentID] = *rec
	}
	return nil
}

// --- patient queue ---

type Queue struct{ s *Store }

func (r *Queue) Insert(_ context.Context, e *models.QueueEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.queue[e.AppointmentKey]; exists {
		return store.ErrDuplicate
	}
	r.s.queue[e.AppointmentKey] = *e
	return nil
}

func (r *Queue) ListByDoctors(_ context.Context, doctorIDs []identity.ID) ([]models.QueueEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.QueueEntry{}
	for _, e := range r.s.queue {
		if containsID(doctorIDs, e.DoctorID) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Queue) GetByKey(_ context.Context, key string) (*models.QueueEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.queue[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (r *Queue) Update(_ context.Context, key string, upd models.QueueUpdate, at time.Time) (*models.QueueEntry, *models.QueueEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.queue[key]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	next := prev
	next.UpdatedAt = at
	if upd.QueueStatus != "" {
		next.QueueStatus = upd.QueueStatus
	}
	if upd.Status != "" {
		next.Status = upd.Status
	}
	r.s.queue[key] = next
	return &prev, &next, nil
}

// --- schedules ---

type Schedules struct{ s *Store }

func (r *Schedules) List(_ context.Context, doctorID identity.ID, date models.DateString) ([]models.Schedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Schedule{}
	for k, sc := range r.s.schedules {
		if k.doctorID != doctorID || (date != "" && k.date != date) {
			continue
		}
		sc.AvailableSlots = append([]string{}, sc.AvailableSlots...)
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *Schedules) AddSlot(_ context.Context, slot models.ScheduleSlot, at time.Time) (identity.ID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := scheduleKey{slot.DoctorID, slot.Date}
	sc, exists := r.s.schedules[k]
	var created identity.ID
	if !exists {
		created = identity.New()
		sc = models.Schedule{ID: created, DoctorID: slot.DoctorID, Date: slot.Date, CreatedAt: at}
	}
	for _, existing := range sc.AvailableSlots {
		if existing == slot.TimeSlot {
			sc.UpdatedAt = at
			r.s.schedules[k] = sc
			return created, nil
		}
	}
	sc.AvailableSlots = append(append([]string{}, sc.AvailableSlots...), slot.TimeSlot)
	sc.UpdatedAt = at
	r.s.schedules[k] = sc
	return created, nil
}

func (r *Schedules) RemoveSlot(_ context.Context, slot models.ScheduleSlot, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := scheduleKey{slot.DoctorID, slot.Date}
	sc, exists := r.s.schedules[k]
	if !exists {
		return store.ErrNotFound
	}
	kept := make([]string, 0, len(sc.AvailableSlots))
	for _, existing := range sc.AvailableSlots {
		if existing != slot.TimeSlot {
			kept = append(kept, existing)
		}
	}
	sc.AvailableSlots = kept
	sc.UpdatedAt = at
	r.s.schedules[k] = sc
	return nil
}

// --- notifications ---

type Notifications struct{ s *Store }

func (r *Notifications) Insert(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !n.SourceEventID.IsZero() {
		for _, existing := range r.s.notifications {
			if existing.SourceEventID == n.SourceEventID {
				return nil
			}
		}
	}
	if _, exists := r.s.notifications[n.ID]; exists {
		return store.ErrDuplicate
	}
	r.s.notifications[n.ID] = *n
	return nil
}

func (r *Notifications) List(_ context.Context, f models.NotificationFilter) ([]models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Notification{}
	for _, n := range r.s.notifications {
		if !f.DoctorID.IsZero() && n.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *Notifications) SetStatus(_ context.Context, id identity.ID, status models.NotificationStatus, at time.Time) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	n.Status = status
	n.UpdatedAt = at
	r.s.notifications[id] = n
	return &n, nil
}

func (r *Notifications) Delete(_ context.Context, id identity.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.notifications, id)
	return nil
}

// --- receptionists ---

type Receptionists struct{ s *Store }

func (r *Receptionists) FindByEmail(_ context.Context, email string) (*models.Receptionist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	email = strings.TrimSpace(email)
	for _, rec := range r.s.receptionists {
		if rec.Email == email {
			rec.LinkedDoctorIDs = append([]identity.ID(nil), rec.LinkedDoctorIDs...)
			return &rec, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *Receptionists) Get(_ context.Context, id identity.ID) (*models.Receptionist, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.receptionists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	rec.LinkedDoctorIDs = append([]identity.ID(nil), rec.LinkedDoctorIDs...)
	return &rec, nil
}

func (r *Receptionists) RecordLogin(_ context.Context, id identity.ID, passwordHash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.receptionists[id]
	if !ok {
		return store.ErrNotFound
	}
	if passwordHash != "" {
		rec.PasswordHash = passwordHash
	}
	rec.LastLogin = &at
	rec.UpdatedAt = at
	r.s.receptionists[id] = rec
	return nil
}

// --- doctors ---

type Doctors struct{ s *Store }

func (r *Doctors) List(context.Context) ([]models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Doctor, 0, len(r.s.doctors))
	for _, d := range r.s.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Doctors) FindByIDs(_ context.Context, ids []identity.ID) ([]models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.Doctor{}
	for _, id := range ids {
		if d, ok := r.s.doctors[id]; ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Doctors) Get(_ context.Context, id identity.ID) (*models.Doctor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.doctors[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (r *Doctors) Upsert(_ context.Context, d *models.Doctor, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, found := r.s.doctors[d.ID]
	next := *d
	next.UpdatedAt = at
	if found {
		next.CreatedAt = existing.CreatedAt
	} else {
		next.CreatedAt = at
	}
	r.s.doctors[d.ID] = next
	return !found, nil
}

// --- outbox ---

type Outbox struct{ s *Store }

func (r *Outbox) Insert(_ context.Context, e *models.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.outbox[e.ID]; exists {
		return store.ErrDuplicate
	}
	r.s.outbox[e.ID] = *e
	return nil
}

func (r *Outbox) Due(_ context.Context, now time.Time, limit int) ([]models.OutboxEvent, error) {
	return r.filter(func(e models.OutboxEvent) bool {
		return e.State == models.OutboxPending && !e.NextAttemptAt.After(now)
	}, limit, false), nil
}

func (r *Outbox) Failed(_ context.Context, limit int) ([]models.OutboxEvent, error) {
	return r.filter(func(e models.OutboxEvent) bool {
		return e.State == models.OutboxFailed
	}, limit, true), nil
}

// All returns every event, oldest first.
func (r *Outbox) All() []models.OutboxEvent {
	return r.filter(func(models.OutboxEvent) bool { return true }, 0, false)
}

func (r *Outbox) filter(keep func(models.OutboxEvent) bool, limit int, newestFirst bool) []models.OutboxEvent {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.OutboxEvent{}
	for _, e := range r.s.outbox {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *Outbox) MarkDone(_ context.Context, id identity.ID, attempts int, at time.Time) error {
	return r.update(id, func(e *models.OutboxEvent) {
		e.State = models.OutboxDone
		e.Attempts = attempts
		e.LastError = ""
		e.ProcessedAt = &at
	})
}

func (r *Outbox) MarkRetry(_ context.Context, id identity.ID, attempts int, lastErr string, next time.Time) error {
	return r.update(id, func(e *models.OutboxEvent) {
		e.Attempts = attempts
		e.LastError = lastErr
		e.NextAttemptAt = next
	})
}

func (r *Outbox) MarkFailed(_ context.Context, id identity.ID, attempts int, lastErr string, at time.Time) error {
	return r.update(id, func(e *models.OutboxEvent) {
		e.State = models.OutboxFailed
		e.Attempts = attempts
		e.LastError = lastErr
		e.ProcessedAt = &at
	})
}

func (r *Outbox) update(id identity.ID, apply func(*models.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	apply(&e)
	r.s.outbox[id] = e
	return nil
}
