package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/constvars"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/identity"
	"github.com/harentsoaR/clinic-reception-api/internal/middleware"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SessionTokenRequest struct {
	SessionToken string `json:"sessionToken"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{
		"success":      true,
		"sessionToken": result.SessionToken,
		"expiresAt":    result.ExpiresAt,
		"receptionist": result.Receptionist,
		"doctors":      result.Doctors,
	})
}

// sessionToken reads the token from the body, falling back to the
// Authorization header.
func (h *Handler) sessionToken(c *gin.Context) (string, bool) {
	var req SessionTokenRequest
	if c.Request.ContentLength != 0 {
		if !h.bind(c, &req) {
			return "", false
		}
	}
	if req.SessionToken == "" {
		req.SessionToken = middleware.BearerToken(c)
	}
	if req.SessionToken == "" {
		h.fail(c, exceptions.ErrMissingField("sessionToken"))
		return "", false
	}
	return req.SessionToken, true
}

func (h *Handler) ValidateSession(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}

	profile, err := h.Auth.ValidateSession(c.Request.Context(), token)
	if err != nil {
		h.fail(c, err)
		return
	}

	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{
		"success":      true,
		"valid":        true,
		"receptionist": profile.Receptionist,
		"doctors":      profile.Doctors,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	token, ok := h.sessionToken(c)
	if !ok {
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), token); err != nil {
		h.fail(c, err)
		return
	}
	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{"success": true})
}

// GetProfile returns the receptionist behind the request's session.
func (h *Handler) GetProfile(c *gin.Context) {
	id, err := identity.Parse(c.GetString(constvars.GinReceptionistIDKey))
	if err != nil {
		h.fail(c, exceptions.ErrTokenInvalidOrExpired(err))
		return
	}

	profile, err := h.Auth.Profile(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	utils.BuildSuccessResponse(c, http.StatusOK, gin.H{
		"success":      true,
		"receptionist": profile.Receptionist,
		"doctors":      profile.Doctors,
	})
}
