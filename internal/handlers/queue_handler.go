package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
)

type UpdateQueueRequest struct {
	AppointmentKey string `json:"appointmentKey" binding:"required"`
	QueueStatus    string `json:"queueStatus"`
	Status         string `json:"status"`
}

func (h *Handler) GetPatientQueue(c *gin.Context) {
	entries, err := h.Queue.List(c.Request.Context(), c.QueryArray("doctorId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []models.QueueEntry{}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"patientQueue": entries})
}

func (h *Handler) UpdatePatientQueue(c *gin.Context) {
	var req UpdateQueueRequest
	if !h.bind(c, &req) {
		return
	}

	entry, err := h.Queue.Update(c.Request.Context(), services.UpdateQueueInput{
		AppointmentKey: req.AppointmentKey,
		QueueStatus:    req.QueueStatus,
		Status:         req.Status,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{
		"success":    true,
		"queueEntry": entry,
		"message":    fmt.Sprintf("Queue entry %s updated", entry.AppointmentKey),
	})
}
