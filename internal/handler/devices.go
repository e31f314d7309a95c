package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutorregister/internal/attendance"
	"tutorregister/internal/auth"
)

type registerRequest struct {
	DeviceID  string `json:"device_id"`
	EnrollKey string `json:"enroll_key"`
}

// RegisterDevice enrolls a scanner or admin device and issues its tokens.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	role, err := auth.RoleForKey(req.EnrollKey, h.auth.EnrollKey, h.auth.AdminKey, h.auth.OpenEnroll)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = uuid.NewString()
	}
	if err := h.svc.RegisterDevice(c.Request.Context(), req.DeviceID, role); err != nil {
		h.fail(c, err)
		return
	}

	tokens, err := auth.Issue(req.DeviceID, role, h.auth.Issuer, h.auth.SigningKey, h.auth.AccessTTL, h.auth.RefreshTTL)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info("device registered", slog.String("device_id", req.DeviceID), slog.String("role", role))

	c.JSON(http.StatusCreated, gin.H{
		"device_id": req.DeviceID,
		"role":      role,
		"tokens":    tokens,
	})
}

// RefreshToken swaps a valid refresh token for a new pair carrying the device's enrolled role.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	claims, err := auth.ParseRefresh(req.RefreshToken, h.auth.SigningKey, h.auth.Issuer)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidToken.Error()})
		return
	}
	// The stored role wins over the one baked into the token.
	role, err := h.svc.DeviceRole(c.Request.Context(), claims.Subject)
	if errors.Is(err, attendance.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "device not enrolled"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	tokens, err := auth.Issue(claims.Subject, role, h.auth.Issuer, h.auth.SigningKey, h.auth.AccessTTL, h.auth.RefreshTTL)
	if err != nil {
		h.fail(c, errors.Join(errors.New("token issue failed"), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}
