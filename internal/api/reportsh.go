package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/report"
)

// ---------- Reports ----------

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (h *Handler) Dashboard(c *gin.Context) {
	day, err := queryDate(c, "date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dash, err := h.reports.Dashboard(c.Request.Context(), dateOnly(day))
	if err != nil {
		h.log.Error("dashboard failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dashboard failed"})
		return
	}
	c.JSON(http.StatusOK, dash)
}

// AttendanceXLSX streams the day's scan rows as a spreadsheet.
func (h *Handler) AttendanceXLSX(c *gin.Context) {
	day, err := queryDate(c, "date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day = dateOnly(day)

	logs, err := h.reports.Attendance(c.Request.Context(), day)
	if err != nil {
		h.log.Error("attendance export failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance export failed"})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.xlsx"`, day.Format("2006-01-02")))
	if err := report.WriteAttendanceXLSX(c.Writer, day, logs); err != nil {
		h.log.Error("attendance write failed", "err", err)
	}
}
