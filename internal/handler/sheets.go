package handler

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorregister/internal/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet returns the wide per-date table as JSON.
func (h *Handler) Sheet(c *gin.Context) {
	w, err := h.svc.WideSheet(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": w.Columns(), "dates": w.DateLabels, "rows": w.Rows})
}

// SheetCSV downloads the wide table as CSV.
func (h *Handler) SheetCSV(c *gin.Context) {
	w, err := h.svc.WideSheet(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.sendTable(c, "attendance.csv", w.Table(), false)
}

// SheetXLSX downloads the wide table as a workbook.
func (h *Handler) SheetXLSX(c *gin.Context) {
	w, err := h.svc.WideSheet(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.sendTable(c, "attendance.xlsx", w.Table(), true)
}

func (h *Handler) sendTable(c *gin.Context, filename string, table [][]string, xlsx bool) {
	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	write := sheet.WriteCSV
	if xlsx {
		contentType = xlsxContentType
		write = sheet.WriteXLSX
	}
	if err := write(&buf, table); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// Today splits the roster into present and absent for a date, filtered by grade and area.
func (h *Handler) Today(c *gin.Context) {
	date, ok := h.dateParam(c, "date")
	if !ok {
		return
	}
	view, err := h.svc.Today(c.Request.Context(), date, c.Query("grade"), c.Query("area"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Tracking returns per-learner attendance totals.
func (h *Handler) Tracking(c *gin.Context) {
	rows, err := h.svc.Tracking(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// TrackingCSV downloads the tracking summary.
func (h *Handler) TrackingCSV(c *gin.Context) {
	rows, err := h.svc.Tracking(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.sendTable(c, "tracking.csv", sheet.TrackingTable(rows), false)
}

// ClassDates lists every session date.
func (h *Handler) ClassDates(c *gin.Context) {
	dates, err := h.svc.ClassDates(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}
