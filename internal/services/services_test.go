package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/messaging"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/relay"
	"github.com/harentsoaR/clinic-reception-api/internal/session"
	"github.com/harentsoaR/clinic-reception-api/internal/store"
	"github.com/harentsoaR/clinic-reception-api/internal/store/memstore"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var testDoctor = identity.MustParse("507f1f77bcf86cd799439011")

type published struct {
	doctorID identity.ID
	kind     string
	data     interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, doctorID identity.ID, kind string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{doctorID, kind, data})
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.kind
	}
	return out
}

type recordingSMS struct {
	messages []messaging.SMSMessage
	err      error
}

func (r *recordingSMS) Publish(_ context.Context, msg messaging.SMSMessage) error {
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, msg)
	return nil
}

type countingNudger struct{ n int }

func (c *countingNudger) Notify() { c.n++ }

type fixture struct {
	mem       *memstore.Store
	repos     Repositories
	nudger    *countingNudger
	publisher *recordingPublisher
	sms       *recordingSMS
	appts     *AppointmentService
	queue     *QueueService
	runner    *EffectRunner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memstore.New()
	repos := MemoryRepositories(mem)
	f := &fixture{
		mem:       mem,
		repos:     repos,
		nudger:    &countingNudger{},
		publisher: &recordingPublisher{},
		sms:       &recordingSMS{},
	}
	log := zap.NewNop()
	f.appts = NewAppointmentService(repos, f.nudger, log)
	f.queue = NewQueueService(repos, f.nudger, log)
	f.runner = NewEffectRunner(repos, NewNotificationService(repos, f.sms, log), f.publisher, log)
	return f
}

func (f *fixture) pendingAppointment() models.Appointment {
	a := models.Appointment{
		ID:              identity.New(),
		AppointmentKey:  "APT-1001",
		DoctorID:        testDoctor,
		DoctorName:      "Dr. Ahmed Khan",
		PatientID:       identity.New(),
		PatientName:     "Ayesha Malik",
		PatientPhone:    "+92300000001",
		AppointmentDate: "2025-09-14",
		TimeSlot:        "10:00 AM",
		Status:          models.StatusPending,
		CreatedAt:       time.Now(),
	}
	f.mem.PutAppointment(a)
	f.mem.PutSchedule(models.Schedule{
		ID:             identity.New(),
		DoctorID:       testDoctor,
		Date:           "2025-09-14",
		AvailableSlots: []string{"09:30 AM", "10:00 AM"},
	})
	return a
}

// drain runs every due outbox event once and marks it done.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	due, err := f.repos.Outbox.Due(ctx, time.Now().Add(time.Minute), 0)
	require.NoError(t, err)
	for _, e := range due {
		require.NoError(t, f.runner.Handle(ctx, e))
		require.NoError(t, f.repos.Outbox.MarkDone(ctx, e.ID, e.Attempts+1, time.Now()))
	}
}

func assertStatusCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	ce, ok := exceptions.As(err)
	require.True(t, ok, "expected a CustomError, got %v", err)
	assert.Equal(t, code, ce.StatusCode)
}

func TestConfirmAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()

	updated, err := f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, 1, f.nudger.n)
	require.Len(t, f.mem.Outbox().All(), 1)

	f.drain(t)

	queue, err := f.repos.Queue.ListByDoctors(ctx, []identity.ID{testDoctor})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, models.QueueWaiting, queue[0].QueueStatus)
	assert.Equal(t, "APT-1001", queue[0].AppointmentKey)

	notifications, err := f.repos.Notifications.List(ctx, models.NotificationFilter{DoctorID: testDoctor})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationAppointmentConfirmed, notifications[0].Type)

	schedules, err := f.repos.Schedules.List(ctx, testDoctor, "2025-09-14")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, []string{"09:30 AM"}, schedules[0].AvailableSlots)

	assert.Equal(t, []string{relay.EventAppointmentUpdate, relay.EventQueueUpdate}, f.publisher.kinds())
	require.Len(t, f.sms.messages, 1)
	assert.Equal(t, "+92300000001", f.sms.messages[0].To)
}

func TestRejectAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	a.TimeSlot = "11:00 AM"
	f.mem.PutAppointment(a)
	ctx := context.Background()

	updated, err := f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{
		AppointmentID:   a.ID.Hex(),
		Status:          "rejected",
		RejectionReason: "Doctor unavailable",
	})
	require.NoError(t, err)
	assert.Equal(t, "Doctor unavailable", updated.RejectionReason)

	f.drain(t)

	queue, err := f.repos.Queue.ListByDoctors(ctx, []identity.ID{testDoctor})
	require.NoError(t, err)
	assert.Empty(t, queue)

	schedules, err := f.repos.Schedules.List(ctx, testDoctor, "2025-09-14")
	require.NoError(t, err)
	assert.Contains(t, schedules[0].AvailableSlots, "11:00 AM")

	rec, ok := f.mem.Rejected(a.ID)
	require.True(t, ok)
	assert.Equal(t, "Doctor unavailable", rec.RejectionReason)

	notifications, err := f.repos.Notifications.List(ctx, models.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationAppointmentRejected, notifications[0].Type)
	assert.Equal(t, []string{relay.EventAppointmentUpdate}, f.publisher.kinds())
}

func TestConfirmTwiceCreatesOneQueueEntry(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()
	in := UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"}

	_, err := f.appts.UpdateStatus(ctx, in)
	require.NoError(t, err)
	again, err := f.appts.UpdateStatus(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, again.Status)
	assert.Len(t, f.mem.Outbox().All(), 1)

	// Handling the same event twice, as a retry would, is harmless.
	event := f.mem.Outbox().All()[0]
	require.NoError(t, f.runner.Handle(ctx, event))
	require.NoError(t, f.runner.Handle(ctx, event))

	queue, err := f.repos.Queue.ListByDoctors(ctx, []identity.ID{testDoctor})
	require.NoError(t, err)
	assert.Len(t, queue, 1)
	notifications, err := f.repos.Notifications.List(ctx, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
}

// lastAppointmentUpdate returns the appointment carried by the most recent
// appointment-update publish.
func (p *recordingPublisher) lastAppointmentUpdate(t *testing.T) *models.Appointment {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].kind == relay.EventAppointmentUpdate {
			a, ok := p.events[i].data.(*models.Appointment)
			require.True(t, ok)
			return a
		}
	}
	t.Fatal("no appointment-update published")
	return nil
}

func TestRetryAfterLaterTransitionIsSkipped(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()
	f.sms.err = errors.New("rabbitmq down")

	_, err := f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"})
	require.NoError(t, err)
	confirm := f.mem.Outbox().All()[0]
	assert.ErrorContains(t, f.runner.Handle(ctx, confirm), "rabbitmq down")

	_, err = f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "cancelled"})
	require.NoError(t, err)
	events := f.mem.Outbox().All()
	require.Len(t, events, 2)
	var cancel models.OutboxEvent
	for _, e := range events {
		if e.To == string(models.StatusCancelled) {
			cancel = e
		}
	}
	require.NoError(t, f.runner.Handle(ctx, cancel))

	f.sms.err = nil
	require.NoError(t, f.runner.Handle(ctx, confirm))

	schedules, err := f.repos.Schedules.List(ctx, testDoctor, "2025-09-14")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.ElementsMatch(t, []string{"09:30 AM", "10:00 AM"}, schedules[0].AvailableSlots)

	entry, err := f.repos.Queue.GetByKey(ctx, "APT-1001")
	require.NoError(t, err)
	assert.Equal(t, models.QueueCancelled, entry.QueueStatus)

	assert.Equal(t, models.StatusCancelled, f.publisher.lastAppointmentUpdate(t).Status)
	assert.Empty(t, f.sms.messages)
}

type flakySchedules struct {
	ScheduleRepository
	failures int
}

func (s *flakySchedules) RemoveSlot(ctx context.Context, slot models.ScheduleSlot, at time.Time) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("schedules unavailable")
	}
	return s.ScheduleRepository.RemoveSlot(ctx, slot, at)
}

func TestRetryDoesNotResendSMS(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()
	f.repos.Schedules = &flakySchedules{ScheduleRepository: f.repos.Schedules, failures: 1}
	f.runner = NewEffectRunner(f.repos, NewNotificationService(f.repos, f.sms, zap.NewNop()), f.publisher, zap.NewNop())

	_, err := f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"})
	require.NoError(t, err)
	event := f.mem.Outbox().All()[0]

	assert.ErrorContains(t, f.runner.Handle(ctx, event), "schedules unavailable")
	assert.Empty(t, f.sms.messages)

	require.NoError(t, f.runner.Handle(ctx, event))
	require.Len(t, f.sms.messages, 1)
	assert.Equal(t, event.ID.Hex(), f.sms.messages[0].IdempotencyKey)

	notifications, err := f.repos.Notifications.List(ctx, models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	schedules, err := f.repos.Schedules.List(ctx, testDoctor, "2025-09-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30 AM"}, schedules[0].AvailableSlots)
}

func TestUpdateStatusValidation(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()

	_, err := f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: "not-24-hex", Status: "confirmed"})
	assertStatusCode(t, err, http.StatusBadRequest)

	_, err = f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "archived"})
	assertStatusCode(t, err, http.StatusBadRequest)

	_, err = f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed", DoctorID: "undefined"})
	assertStatusCode(t, err, http.StatusBadRequest)

	_, err = f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: identity.New().Hex(), Status: "confirmed"})
	assertStatusCode(t, err, http.StatusNotFound)

	assert.Empty(t, f.mem.Outbox().All())
}

func TestUpdateStatusFromTerminalConflicts(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	a.Status = models.StatusRejected
	f.mem.PutAppointment(a)

	_, err := f.appts.UpdateStatus(context.Background(), UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"})
	assertStatusCode(t, err, http.StatusConflict)
}

func TestUpdateStatusFillsMissingDoctor(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	a.DoctorID = identity.ID{}
	f.mem.PutAppointment(a)

	updated, err := f.appts.UpdateStatus(context.Background(), UpdateAppointmentStatusInput{
		AppointmentID: a.ID.Hex(),
		Status:        "confirmed",
		DoctorID:      testDoctor.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, testDoctor, updated.DoctorID)
}

// racingAppointments lets another writer win between the read and the write.
type racingAppointments struct {
	AppointmentRepository
	mem *memstore.Store
}

func (r racingAppointments) UpdateStatus(ctx context.Context, id identity.ID, change store.StatusChange) (*models.Appointment, error) {
	a, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = change.To
	r.mem.PutAppointment(*a)
	return nil, store.ErrConflict
}

func TestConcurrentConfirmCountsAsSuccess(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	f.repos.Appointments = racingAppointments{AppointmentRepository: f.mem.Appointments(), mem: f.mem}
	svc := NewAppointmentService(f.repos, f.nudger, zap.NewNop())

	updated, err := svc.UpdateStatus(context.Background(), UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Empty(t, f.mem.Outbox().All())
	assert.Zero(t, f.nudger.n)
}

func TestListAppointments(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()

	got, err := f.appts.List(ctx, AppointmentListInput{DoctorIDs: []string{testDoctor.Hex(), "undefined"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = f.appts.List(ctx, AppointmentListInput{DoctorIDs: []string{identity.New().Hex()}})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.appts.List(ctx, AppointmentListInput{DoctorIDs: []string{"null"}})
	assertStatusCode(t, err, http.StatusBadRequest)

	_, err = f.appts.List(ctx, AppointmentListInput{DoctorIDs: []string{testDoctor.Hex()}, Date: "14/09/2025"})
	assertStatusCode(t, err, http.StatusBadRequest)
}

func TestQueueListSortsBySessionStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	for i, slot := range []string{"2:00 PM", "9:30 AM", "14:00", "09:00"} {
		require.NoError(t, f.repos.Queue.Insert(ctx, &models.QueueEntry{
			ID:               identity.New(),
			AppointmentKey:   "K" + slot,
			DoctorID:         testDoctor,
			SessionStartTime: slot,
			QueueStatus:      models.QueueWaiting,
			CreatedAt:        now.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := f.queue.List(ctx, []string{testDoctor.Hex()})
	require.NoError(t, err)
	var order []string
	for _, e := range entries {
		order = append(order, e.SessionStartTime)
	}
	assert.Equal(t, []string{"09:00", "9:30 AM", "2:00 PM", "14:00"}, order)
}

func TestQueueUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repos.Queue.Insert(ctx, &models.QueueEntry{
		ID:             identity.New(),
		AppointmentKey: "APT-7",
		DoctorID:       testDoctor,
		QueueStatus:    models.QueueWaiting,
	}))

	_, err := f.queue.Update(ctx, UpdateQueueInput{AppointmentKey: "APT-7"})
	assertStatusCode(t, err, http.StatusBadRequest)
	_, err = f.queue.Update(ctx, UpdateQueueInput{AppointmentKey: "APT-7", QueueStatus: "sleeping"})
	assertStatusCode(t, err, http.StatusBadRequest)
	_, err = f.queue.Update(ctx, UpdateQueueInput{AppointmentKey: "missing", QueueStatus: "in-session"})
	assertStatusCode(t, err, http.StatusNotFound)

	entry, err := f.queue.Update(ctx, UpdateQueueInput{AppointmentKey: "APT-7", QueueStatus: "in-session"})
	require.NoError(t, err)
	assert.Equal(t, models.QueueInSession, entry.QueueStatus)
	require.Len(t, f.mem.Outbox().All(), 1)
	assert.Equal(t, models.EventQueueStatusChanged, f.mem.Outbox().All()[0].Type)

	// Same status again: no new event.
	_, err = f.queue.Update(ctx, UpdateQueueInput{AppointmentKey: "APT-7", QueueStatus: "in-session"})
	require.NoError(t, err)
	assert.Len(t, f.mem.Outbox().All(), 1)

	f.drain(t)
	assert.Equal(t, []string{relay.EventQueueUpdate}, f.publisher.kinds())
}

func TestCancelConfirmedAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.pendingAppointment()
	ctx := context.Background()

	_, err := f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "confirmed"})
	require.NoError(t, err)
	f.drain(t)
	_, err = f.appts.UpdateStatus(ctx, UpdateAppointmentStatusInput{AppointmentID: a.ID.Hex(), Status: "cancelled"})
	require.NoError(t, err)
	f.drain(t)

	entry, err := f.repos.Queue.GetByKey(ctx, "APT-1001")
	require.NoError(t, err)
	assert.Equal(t, models.QueueCancelled, entry.QueueStatus)

	schedules, err := f.repos.Schedules.List(ctx, testDoctor, "2025-09-14")
	require.NoError(t, err)
	assert.Contains(t, schedules[0].AvailableSlots, "10:00 AM")
}

func TestScheduleService(t *testing.T) {
	f := newFixture(t)
	svc := NewScheduleService(f.repos, zap.NewNop())
	ctx := context.Background()
	in := ScheduleSlotInput{DoctorID: testDoctor.Hex(), Date: "2025-10-01", TimeSlot: "09:00 AM"}

	created, err := svc.AddSlot(ctx, in)
	require.NoError(t, err)
	assert.False(t, created.IsZero())

	again, err := svc.AddSlot(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.IsZero())

	schedules, err := svc.List(ctx, testDoctor.Hex(), "2025-10-01")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, []string{"09:00 AM"}, schedules[0].AvailableSlots)

	require.NoError(t, svc.RemoveSlot(ctx, in))
	err = svc.RemoveSlot(ctx, ScheduleSlotInput{DoctorID: testDoctor.Hex(), Date: "2025-10-02", TimeSlot: "09:00 AM"})
	assertStatusCode(t, err, http.StatusNotFound)

	_, err = svc.AddSlot(ctx, ScheduleSlotInput{DoctorID: testDoctor.Hex(), Date: "2025-10-01"})
	assertStatusCode(t, err, http.StatusBadRequest)
}

func TestNotificationList(t *testing.T) {
	f := newFixture(t)
	svc := NewNotificationService(f.repos, nil, zap.NewNop())
	ctx := context.Background()
	now := time.Now()
	for i := 0; i < 60; i++ {
		require.NoError(t, f.repos.Notifications.Insert(ctx, &models.Notification{
			ID:        identity.New(),
			DoctorID:  testDoctor,
			Status:    models.NotificationUnread,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := svc.List(ctx, NotificationListInput{})
	require.NoError(t, err)
	assert.Len(t, got, models.DefaultNotificationLimit)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))

	got, err = svc.List(ctx, NotificationListInput{Limit: "500", Status: "all"})
	require.NoError(t, err)
	assert.Len(t, got, 60)

	_, err = svc.List(ctx, NotificationListInput{Limit: "0"})
	assertStatusCode(t, err, http.StatusBadRequest)

	marked, err := svc.MarkStatus(ctx, got[0].ID.Hex(), "read")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationRead, marked.Status)

	read, err := svc.List(ctx, NotificationListInput{Status: "read"})
	require.NoError(t, err)
	assert.Len(t, read, 1)

	require.NoError(t, svc.Delete(ctx, got[0].ID.Hex()))
	assertStatusCode(t, svc.Delete(ctx, got[0].ID.Hex()), http.StatusNotFound)
}

func newAuth(t *testing.T, f *fixture) (*AuthService, *utils.TokenIssuer) {
	t.Helper()
	utils.BcryptCost = bcrypt.MinCost
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	doctors := NewDoctorService(f.repos, 16, time.Minute, zap.NewNop())
	return NewAuthService(f.repos, doctors, tokens, session.NewMemoryRevoker(16, time.Hour), zap.NewNop()), tokens
}

func TestLoginUpgradesPlaintextPassword(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	ctx := context.Background()
	_, err := f.repos.Doctors.Upsert(ctx, &models.Doctor{ID: testDoctor, Name: "Dr. Ahmed Khan", Specialization: "Cardiology"}, time.Now())
	require.NoError(t, err)

	recID := identity.New()
	f.mem.PutReceptionist(models.Receptionist{
		ID:              recID,
		Name:            "Sana",
		Email:           "sana@clinic.com",
		PasswordHash:    "secret123",
		LinkedDoctorIDs: []identity.ID{testDoctor},
	})

	_, err = auth.Login(ctx, "sana@clinic.com", "wrong")
	assertStatusCode(t, err, http.StatusUnauthorized)
	_, err = auth.Login(ctx, "nobody@clinic.com", "secret123")
	assertStatusCode(t, err, http.StatusUnauthorized)

	res, err := auth.Login(ctx, "sana@clinic.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionToken)
	require.Len(t, res.Doctors, 1)
	assert.Equal(t, "Dr. Ahmed Khan", res.Doctors[0].Name)

	stored, err := f.repos.Receptionists.Get(ctx, recID)
	require.NoError(t, err)
	assert.True(t, utils.IsBcryptHash(stored.PasswordHash))
	assert.NotNil(t, stored.LastLogin)

	// The upgraded hash still accepts the same password.
	_, err = auth.Login(ctx, "sana@clinic.com", "secret123")
	require.NoError(t, err)
}

func TestLoginWithoutLinkedDoctors(t *testing.T) {
	f := newFixture(t)
	auth, _ := newAuth(t, f)
	hash, err := utils.HashPassword("secret123")
	require.NoError(t, err)
	f.mem.PutReceptionist(models.Receptionist{ID: identity.New(), Email: "solo@clinic.com", PasswordHash: hash})

	_, err = auth.Login(context.Background(), "solo@clinic.com", "secret123")
	assertStatusCode(t, err, http.StatusNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	auth, tokens := newAuth(t, f)
	ctx := context.Background()

	recID := identity.New()
	f.mem.PutReceptionist(models.Receptionist{ID: recID, Email: "a@clinic.com", LinkedDoctorIDs: []identity.ID{testDoctor}})
	token, _, err := tokens.GenerateJWT(recID.Hex(), RoleReceptionist)
	require.NoError(t, err)

	sess, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, recID, sess.ReceptionistID)

	profile, err := auth.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "a@clinic.com", profile.Receptionist.Email)

	require.NoError(t, auth.Logout(ctx, token))
	_, err = auth.Authenticate(ctx, token)
	assertStatusCode(t, err, http.StatusUnauthorized)

	_, err = auth.Authenticate(ctx, "garbage")
	assertStatusCode(t, err, http.StatusUnauthorized)

	// Tokens for receptionists that no longer exist are rejected.
	ghost, _, err := tokens.GenerateJWT(identity.New().Hex(), RoleReceptionist)
	require.NoError(t, err)
	_, err = auth.ValidateSession(ctx, ghost)
	assertStatusCode(t, err, http.StatusUnauthorized)
}

func TestDoctorServiceCachesLookups(t *testing.T) {
	f := newFixture(t)
	svc := NewDoctorService(f.repos, 8, time.Minute, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Upsert(ctx, &models.Doctor{ID: testDoctor, Name: "Dr. Ahmed Khan"})
	require.NoError(t, err)
	assert.True(t, created)

	got, err := svc.FindByIDs(ctx, []identity.ID{testDoctor, identity.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)

	created, err = svc.Upsert(ctx, &models.Doctor{ID: testDoctor, Name: "Dr. A. Khan"})
	require.NoError(t, err)
	assert.False(t, created)

	got, err = svc.FindByIDs(ctx, []identity.ID{testDoctor})
	require.NoError(t, err)
	assert.Equal(t, "Dr. A. Khan", got[0].Name)
}
