package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"go.uber.org/zap"
)

// IndexReporter is implemented by stores that keep the outcome of their
// startup index build.
type IndexReporter interface {
	IndexError() error
}

const (
	defaultFailedEventsLimit = 50
	maxFailedEventsLimit     = 500
)

// HealthCheck pings the store and reports collection sizes. Any store error
// answers 503.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	if err := h.Health.Ping(ctx); err != nil {
		h.Log.Warn("health check ping failed",
			zap.String(constvars.LoggingRequestIDKey, constvars.RequestID(ctx)),
			zap.Error(err),
		)
		utils.BuildSuccessResponse(c, http.StatusServiceUnavailable, gin.H{
			"success": false,
			"status":  "unhealthy",
			"error":   exceptions.ErrClientServiceUnavailable,
		})
		return
	}
	counts, err := h.Health.Counts(ctx)
	if err != nil {
		h.Log.Warn("health check counts failed",
			zap.String(constvars.LoggingRequestIDKey, constvars.RequestID(ctx)),
			zap.Error(err),
		)
		utils.BuildSuccessResponse(c, http.StatusServiceUnavailable, gin.H{
			"success": false,
			"status":  "unhealthy",
			"error":   exceptions.ErrClientServiceUnavailable,
		})
		return
	}

	body := gin.H{
		"success":     true,
		"status":      "healthy",
		"latencyMs":   time.Since(start).Milliseconds(),
		"collections": counts,
	}
	if r, ok := h.Health.(IndexReporter); ok {
		if err := r.IndexError(); err != nil {
			body["status"] = "degraded"
			body["indexes"] = err.Error()
		}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, body)
}

// GetFailedOutboxEvents lists events whose side effects were abandoned.
func (h *Handler) GetFailedOutboxEvents(c *gin.Context) {
	limit := defaultFailedEventsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.fail(c, exceptions.ErrInvalidValue("limit", raw, []string{"1-" + strconv.Itoa(maxFailedEventsLimit)}))
			return
		}
		limit = min(n, maxFailedEventsLimit)
	}

	events, err := h.Outbox.Failed(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, exceptions.ErrStoreOperation(err, "list failed outbox events"))
		return
	}
	if events == nil {
		events = []models.OutboxEvent{}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"success": true, "events": events})
}
