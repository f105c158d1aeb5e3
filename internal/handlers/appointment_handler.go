package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
)

type UpdateAppointmentRequest struct {
	AppointmentID   string `json:"appointmentId" binding:"required,objectid"`
	Status          string `json:"status" binding:"required"`
	RejectionReason string `json:"rejectionReason" binding:"max=500"`
	DoctorID        string `json:"doctorId" binding:"omitempty,objectid"`
}

// GetAppointments lists appointments for one or more doctors, e.g.
// /api/appointments?doctorId=a&doctorId=b&status=pending&date=2025-09-14.
func (h *Handler) GetAppointments(c *gin.Context) {
	appointments, err := h.Appointments.List(c.Request.Context(), services.AppointmentListInput{
		DoctorIDs: c.QueryArray("doctorId"),
		Status:    c.Query("status"),
		Date:      c.Query("date"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if appointments == nil {
		appointments = []models.Appointment{}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"appointments": appointments})
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	var req UpdateAppointmentRequest
	if !h.bind(c, &req) {
		return
	}

	appointment, err := h.Appointments.UpdateStatus(c.Request.Context(), services.UpdateAppointmentStatusInput{
		AppointmentID:   req.AppointmentID,
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
		DoctorID:        req.DoctorID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{
		"success":     true,
		"appointment": appointment,
	})
}
