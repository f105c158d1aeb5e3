package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/models"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
)

func (h *Handler) GetDoctors(c *gin.Context) {
	doctors, err := h.Doctors.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if doctors == nil {
		doctors = []models.Doctor{}
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"success": true, "doctors": doctors})
}
