package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
)

type UpdateNotificationRequest struct {
	NotificationID string `json:"notificationId" binding:"required,objectid"`
	Status         string `json:"status" binding:"required,oneof=read unread"`
}

func (h *Handler) GetNotifications(c *gin.Context) {
	notifications, err := h.Notifications.List(c.Request.Context(), services.NotificationListInput{
		DoctorID: c.Query("doctorId"),
		Status:   c.Query("status"),
		Limit:    c.Query("limit"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
	})
}

func (h *Handler) UpdateNotification(c *gin.Context) {
	var req UpdateNotificationRequest
	if !h.bind(c, &req) {
		return
	}

	n, err := h.Notifications.MarkStatus(c.Request.Context(), req.NotificationID, req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"success": true, "notification": n})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	if err := h.Notifications.Delete(c.Request.Context(), c.Query("notificationId")); err != nil {
		h.fail(c, err)
		return
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"success": true})
}
