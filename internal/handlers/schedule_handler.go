package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
)

type ScheduleSlotRequest struct {
	DoctorID string `json:"doctorId" binding:"required,objectid"`
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required"`
}

func (r ScheduleSlotRequest) input() services.ScheduleSlotInput {
	return services.ScheduleSlotInput{DoctorID: r.DoctorID, Date: r.Date, TimeSlot: r.TimeSlot}
}

func (h *Handler) GetSchedules(c *gin.Context) {
	schedules, err := h.Schedules.List(c.Request.Context(), c.Query("doctorId"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if schedules == nil {
		schedules = []models.Schedule{}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"schedules": schedules})
}

func (h *Handler) AddScheduleSlot(c *gin.Context) {
	var req ScheduleSlotRequest
	if !h.bind(c, &req) {
		return
	}

	id, err := h.Schedules.AddSlot(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{"success": true}
	if !id.IsZero() {
		body["scheduleId"] = id
	}
	utils.BuildSuccessResponse(c, http.StatusOK, body)
}

func (h *Handler) RemoveScheduleSlot(c *gin.Context) {
	var req ScheduleSlotRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.Schedules.RemoveSlot(c.Request.Context(), req.input()); err != nil {
		h.fail(c, err)
		return
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"success": true})
}
