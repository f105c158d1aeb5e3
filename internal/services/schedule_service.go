package services

import (
	"context"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.uber.org/zap"
)

type ScheduleSlotInput struct {
	DoctorID string
	Date     string
	TimeSlot string
}

type ScheduleService struct {
	repos Repositories
	now   func() time.Time
	log   *zap.Logger
}

func NewScheduleService(repos Repositories, log *zap.Logger) *ScheduleService {
	return &ScheduleService{repos: repos, now: time.Now, log: log}
}

func (s *ScheduleService) List(ctx context.Context, rawDoctorID, rawDate string) ([]models.Schedule, error) {
	doctorID, err := parseID(strings.TrimSpace(rawDoctorID), "doctorId")
	if err != nil {
		return nil, err
	}
	var date models.DateString
	if rawDate != "" {
		if date, err = models.ParseDate(rawDate); err != nil {
			return nil, exceptions.ErrInvalidValue("date", rawDate, []string{models.DateLayout})
		}
	}
	schedules, err := s.repos.Schedules.List(ctx, doctorID, date)
	if err != nil {
		return nil, storeError(err, "Schedules", "list schedules")
	}
	return schedules, nil
}

// AddSlot returns the id of the schedule it created, or the zero id when the
// slot was added to an existing schedule.
func (s *ScheduleService) AddSlot(ctx context.Context, in ScheduleSlotInput) (identity.ID, error) {
	slot, err := parseSlot(in)
	if err != nil {
		return identity.ID{}, err
	}
	id, err := s.repos.Schedules.AddSlot(ctx, slot, s.now().UTC())
	if err != nil {
		return identity.ID{}, storeError(err, "Schedule", "add schedule slot")
	}
	return id, nil
}

func (s *ScheduleService) RemoveSlot(ctx context.Context, in ScheduleSlotInput) error {
	slot, err := parseSlot(in)
	if err != nil {
		return err
	}
	if err := s.repos.Schedules.RemoveSlot(ctx, slot, s.now().UTC()); err != nil {
		return storeError(err, "Schedule", "remove schedule slot")
	}
	return nil
}

func parseSlot(in ScheduleSlotInput) (models.ScheduleSlot, error) {
	doctorID, err := parseID(strings.TrimSpace(in.DoctorID), "doctorId")
	if err != nil {
		return models.ScheduleSlot{}, err
	}
	if in.Date == "" {
		return models.ScheduleSlot{}, exceptions.ErrMissingField("date")
	}
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return models.ScheduleSlot{}, exceptions.ErrInvalidValue("date", in.Date, []string{models.DateLayout})
	}
	timeSlot := strings.TrimSpace(in.TimeSlot)
	if timeSlot == "" {
		return models.ScheduleSlot{}, exceptions.ErrMissingField("timeSlot")
	}
	return models.ScheduleSlot{DoctorID: doctorID, Date: date, TimeSlot: timeSlot}, nil
}
