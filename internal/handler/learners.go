package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"tutorregister/internal/attendance"
)

const qrSize = 256

// ListLearners returns the roster.
func (h *Handler) ListLearners(c *gin.Context) {
	learners, err := h.svc.Learners(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"learners": learners})
}

// GetLearner returns one learner by barcode.
func (h *Handler) GetLearner(c *gin.Context) {
	l, err := h.svc.Learner(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// LearnerQR renders the learner's barcode as a PNG QR badge.
func (h *Handler) LearnerQR(c *gin.Context) {
	l, err := h.svc.Learner(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := qrcode.Encode(l.Barcode, qrcode.Medium, qrSize)
	if err != nil {
		h.fail(c, fmt.Errorf("qr for %s: %w", l.Barcode, err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// UpsertLearner adds or edits a learner.
func (h *Handler) UpsertLearner(c *gin.Context) {
	var l attendance.Learner
	if err := c.ShouldBindJSON(&l); err != nil {
		badRequest(c, err.Error())
		return
	}
	saved, err := h.svc.UpsertLearner(c.Request.Context(), l)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteLearner removes a learner; attendance history is kept.
func (h *Handler) DeleteLearner(c *gin.Context) {
	n, err := h.svc.DeleteLearner(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if n == 0 {
		h.fail(c, fmt.Errorf("%w: %s", attendance.ErrNotFound, attendance.NormalizeBarcode(c.Param("barcode"))))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// ReplaceRoster replaces the whole roster with an uploaded CSV (form field "file").
func (h *Handler) ReplaceRoster(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file field required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	learners, err := attendance.ReadRoster(f)
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.svc.ReplaceRoster(c.Request.Context(), learners)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.metrics.SetRosterSize(n)
	h.log.Info("roster replaced", slog.String("file", fh.Filename), slog.Int("learners", n))
	h.broadcast("roster", gin.H{"learners": n})
	c.JSON(http.StatusOK, gin.H{"learners": n})
}
