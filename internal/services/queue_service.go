package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"go.uber.org/zap"
)

type UpdateQueueInput struct {
	AppointmentKey string
	QueueStatus    string
	Status         string
}

type QueueService struct {
	repos Repositories
	nudge Nudger
	now   func() time.Time
	log   *zap.Logger
}

func NewQueueService(repos Repositories, nudge Nudger, log *zap.Logger) *QueueService {
	if nudge == nil {
		nudge = nopNudger{}
	}
	return &QueueService{repos: repos, nudge: nudge, now: time.Now, log: log}
}

// List returns the queue of every given doctor ordered by session start.
func (s *QueueService) List(ctx context.Context, rawDoctorIDs []string) ([]models.QueueEntry, error) {
	doctorIDs, err := parseDoctorIDs(rawDoctorIDs)
	if err != nil {
		return nil, err
	}
	entries, err := s.repos.Queue.ListByDoctors(ctx, doctorIDs)
	if err != nil {
		return nil, storeError(err, "Queue entries", "list queue")
	}
	SortQueue(entries)
	return entries, nil
}

// SortQueue orders entries by session start time, reading both "9:30 AM"
// and "14:00" forms. Ties keep arrival order.
func SortQueue(entries []models.QueueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := utils.To24Hour(entries[i].SessionStartTime), utils.To24Hour(entries[j].SessionStartTime)
		if a != b {
			return a < b
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

func (s *QueueService) Update(ctx context.Context, in UpdateQueueInput) (*models.QueueEntry, error) {
	key := strings.TrimSpace(in.AppointmentKey)
	if key == "" {
		return nil, exceptions.ErrMissingField("appointmentKey")
	}

	var upd models.QueueUpdate
	if in.QueueStatus != "" {
		upd.QueueStatus = models.QueueStatus(strings.ToLower(in.QueueStatus))
		if !upd.QueueStatus.Valid() {
			return nil, exceptions.ErrInvalidValue("queueStatus", in.QueueStatus, queueStatusNames())
		}
	}
	if in.Status != "" {
		upd.Status = models.AppointmentStatus(strings.ToLower(in.Status))
		if !upd.Status.Valid() {
			return nil, exceptions.ErrInvalidValue("status", in.Status, appointmentStatusNames())
		}
	}
	if upd.QueueStatus == "" && upd.Status == "" {
		return nil, exceptions.ErrQueueUpdateEmpty()
	}

	now := s.now().UTC()
	var (
		after   *models.QueueEntry
		changed bool
	)
	err := s.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		before, next, err := s.repos.Queue.Update(ctx, key, upd, now)
		if err != nil {
			return err
		}
		after = next
		changed = before.QueueStatus != next.QueueStatus || before.Status != next.Status
		if !changed {
			return nil
		}
		event := models.NewQueueEvent(before.QueueStatus, next, now)
		event.Actor = constvars.ReceptionistID(ctx)
		return s.repos.Outbox.Insert(ctx, event)
	})
	if err != nil {
		return nil, storeError(err, "Queue entry", "update queue entry")
	}

	if changed {
		s.nudge.Notify()
		s.log.Info("queue entry updated",
			zap.String(constvars.LoggingRequestIDKey, constvars.RequestID(ctx)),
			zap.String("appointmentKey", key),
			zap.String("queueStatus", string(after.QueueStatus)),
		)
	}
	return after, nil
}
