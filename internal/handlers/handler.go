package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"go.uber.org/zap"
)

// HealthChecker is implemented by both store backends.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Counts(ctx context.Context) (map[string]int64, error)
}

// FailedEvents lists outbox events that ran out of attempts.
type FailedEvents interface {
	Failed(ctx context.Context, limit int) ([]models.OutboxEvent, error)
}

type Handler struct {
	Auth          *services.AuthService
	Appointments  *services.AppointmentService
	Queue         *services.QueueService
	Schedules     *services.ScheduleService
	Notifications *services.NotificationService
	Doctors       *services.DoctorService
	Health        HealthChecker
	Outbox        FailedEvents
	Log           *zap.Logger
}

func (h *Handler) fail(c *gin.Context, err error) {
	utils.BuildErrorResponse(h.Log, c, err)
}

// bind decodes the JSON body into req and runs its binding rules.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			h.fail(c, exceptions.ErrInputValidation(err))
		} else {
			h.fail(c, exceptions.ErrCannotBindRequest(err))
		}
		return false
	}
	return true
}
