package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorregister/internal/attendance"
	"tutorregister/internal/queue"
)

// SendReport queues the daily report for a date. Delivery is skipped if it already went out.
func (h *Handler) SendReport(c *gin.Context) {
	date := c.Param("date")
	if _, err := attendance.ParseDateISO(date); err != nil {
		badRequest(c, "invalid date, want YYYY-MM-DD")
		return
	}
	if h.queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report queue not configured"})
		return
	}

	sent, err := h.svc.ReportSent(c.Request.Context(), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	if sent {
		c.JSON(http.StatusOK, gin.H{"date": date, "status": "already_sent"})
		return
	}
	if err := h.queue.Publish(c.Request.Context(), queue.ReportMessage(date)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"date": date, "status": "queued"})
}
