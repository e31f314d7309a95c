package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorregister/internal/attendance"
	"tutorregister/internal/metrics"
)

type scanRequest struct {
	Barcode string `json:"barcode"`
}

// Scan records the next IN/OUT for the scanned learner.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.svc.Scan(c.Request.Context(), req.Barcode)
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrEmptyInput):
			h.metrics.ObserveScan("", metrics.OutcomeEmpty)
		case errors.Is(err, attendance.ErrNotFound):
			h.metrics.ObserveScan("", metrics.OutcomeNotFound)
		default:
			h.metrics.ObserveScan("", metrics.OutcomeError)
		}
		h.fail(c, err)
		return
	}

	if res.Debounced {
		h.metrics.ObserveScan(string(res.Event.Action), metrics.OutcomeDebounced)
	} else {
		h.metrics.ObserveScan(string(res.Event.Action), metrics.OutcomeOK)
		h.broadcast("scan", res)
	}
	h.log.Debug("scan",
		slog.String("barcode", res.Learner.Barcode),
		slog.String("action", string(res.Event.Action)),
		slog.Bool("debounced", res.Debounced),
	)
	c.JSON(http.StatusOK, res)
}

// NextAction previews what scanning a barcode would record.
func (h *Handler) NextAction(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	action, err := h.svc.NextAction(c.Request.Context(), date, c.Query("barcode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "action": action})
}

// Events lists a day's in/out log, optionally for one barcode.
func (h *Handler) Events(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	events, err := h.svc.Events(c.Request.Context(), date, c.Query("barcode"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "events": events})
}

// CurrentlyIn lists learners whose latest event for the date is IN.
func (h *Handler) CurrentlyIn(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	inside, err := h.svc.CurrentlyIn(c.Request.Context(), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "inside": inside})
}

type markRequest struct {
	Date    string `json:"date"`
	Barcode string `json:"barcode"`
	Present *bool  `json:"present"`
}

// Mark sets a learner's present flag for a date; present defaults to true and date to today.
func (h *Handler) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Date == "" {
		req.Date = h.svc.TodayISO()
	}
	if _, err := attendance.ParseDateISO(req.Date); err != nil {
		badRequest(c, "invalid date, want YYYY-MM-DD")
		return
	}
	present := true
	if req.Present != nil {
		present = *req.Present
	}

	mark, err := h.svc.MarkPresent(c.Request.Context(), req.Date, req.Barcode, present)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.ObserveMark(present)
	h.broadcast("mark", mark)
	c.JSON(http.StatusOK, mark)
}
