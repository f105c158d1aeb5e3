package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/messaging"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"go.uber.org/zap"
)

// SMSPublisher hands a patient text message to the delivery gateway.
type SMSPublisher interface {
	Publish(ctx context.Context, msg messaging.SMSMessage) error
}

type NotificationListInput struct {
	DoctorID string
	Status   string
	Limit    string
}

// NotificationService owns the receptionist inbox and the patient SMS that
// accompany appointment decisions.
type NotificationService struct {
	repos Repositories
	sms   SMSPublisher
	now   func() time.Time
	log   *zap.Logger
}

// NewNotificationService builds the service. A nil sms disables patient
// messages.
func NewNotificationService(repos Repositories, sms SMSPublisher, log *zap.Logger) *NotificationService {
	return &NotificationService{repos: repos, sms: sms, now: time.Now, log: log}
}

func (s *NotificationService) List(ctx context.Context, in NotificationListInput) ([]models.Notification, error) {
	filter := models.NotificationFilter{Limit: models.DefaultNotificationLimit}

	if in.Limit != "" {
		limit, err := strconv.ParseInt(in.Limit, 10, 64)
		if err != nil || limit < 1 {
			return nil, exceptions.ErrInvalidValue("limit", in.Limit, []string{"1-100"})
		}
		if limit > models.MaxNotificationLimit {
			limit = models.MaxNotificationLimit
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(in.DoctorID); raw != "" {
		id, err := parseID(raw, "doctorId")
		if err != nil {
			return nil, err
		}
		filter.DoctorID = id
	}
	switch status := models.NotificationStatus(strings.ToLower(in.Status)); status {
	case "", "all":
	case models.NotificationRead, models.NotificationUnread:
		filter.Status = status
	default:
		return nil, exceptions.ErrInvalidValue("status", in.Status, []string{"read", "unread", "all"})
	}

	notifications, err := s.repos.Notifications.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "Notifications", "list notifications")
	}
	return notifications, nil
}

func (s *NotificationService) MarkStatus(ctx context.Context, rawID, rawStatus string) (*models.Notification, error) {
	id, err := parseID(strings.TrimSpace(rawID), "notificationId")
	if err != nil {
		return nil, err
	}
	status := models.NotificationStatus(strings.ToLower(rawStatus))
	if status != models.NotificationRead && status != models.NotificationUnread {
		return nil, exceptions.ErrInvalidValue("status", rawStatus, []string{"read", "unread"})
	}
	n, err := s.repos.Notifications.SetStatus(ctx, id, status, s.now().UTC())
	if err != nil {
		return nil, storeError(err, "Notification", "update notification")
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(strings.TrimSpace(rawID), "notificationId")
	if err != nil {
		return err
	}
	if err := s.repos.Notifications.Delete(ctx, id); err != nil {
		return storeError(err, "Notification", "delete notification")
	}
	return nil
}

// RecordStatusChange writes the inbox entry for a confirmed or rejected
// appointment. Recording the same event twice leaves one entry.
func (s *NotificationService) RecordStatusChange(ctx context.Context, a *models.Appointment, eventID identity.ID) error {
	return s.repos.Notifications.Insert(ctx, models.NewStatusNotification(a, eventID, s.now().UTC()))
}

// SendStatusSMS queues a text to the patient about the decision on their
// appointment. The event id doubles as the gateway's idempotency key.
func (s *NotificationService) SendStatusSMS(ctx context.Context, a *models.Appointment, eventID identity.ID) error {
	if s.sms == nil {
		return nil
	}
	if a.PatientPhone == "" {
		s.log.Debug("SMS not sent: patient has no phone number", zap.String("appointmentKey", a.Key()))
		return nil
	}

	var body string
	switch a.Status {
	case models.StatusConfirmed:
		body = fmt.Sprintf("Appointment confirmed: %s on %s at %s.", a.PatientName, a.AppointmentDate, a.TimeSlot)
		if a.DoctorName != "" {
			body = fmt.Sprintf("Appointment confirmed: %s with %s on %s at %s.", a.PatientName, a.DoctorName, a.AppointmentDate, a.TimeSlot)
		}
	case models.StatusRejected:
		body = fmt.Sprintf("Your appointment request for %s at %s could not be accepted.", a.AppointmentDate, a.TimeSlot)
		if a.RejectionReason != "" {
			body += " Reason: " + a.RejectionReason
		}
	default:
		return nil
	}

	return s.sms.Publish(ctx, messaging.SMSMessage{
		To:             a.PatientPhone,
		Body:           body,
		AppointmentKey: a.Key(),
		IdempotencyKey: eventID.Hex(),
	})
}
