package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"absence-visualizer-backend/internal/engine"
)

// GetEmployees handles GET /api/employees: every active or onboarding employee in upstream order.
func (h *Handler) GetEmployees(c *gin.Context) {
	employees, err := h.store.Employees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]engine.Employee, 0, len(employees))
	for _, e := range employees {
		if e.Status.Participates() {
			out = append(out, e)
		}
	}
	c.JSON(http.StatusOK, out)
}

// GetAbsences handles GET /api/absences?start_date=&end_date=.
func (h *Handler) GetAbsences(c *gin.Context) {
	startRaw, endRaw := c.Query("start_date"), c.Query("end_date")
	if startRaw == "" || endRaw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}
	from, err := h.dateQuery(c, "start_date")
	if err != nil {
		respondError(c, err)
		return
	}
	to, err := h.dateQuery(c, "end_date")
	if err != nil {
		respondError(c, err)
		return
	}
	if to.Before(from) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "end_date must not be before start_date"})
		return
	}

	absences, err := h.store.Absences(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if absences == nil {
		absences = []engine.AbsenceRecord{}
	}
	c.JSON(http.StatusOK, absences)
}

// GetHolidays handles GET /api/holidays?year=. It prefers the holiday API and falls back to the
// stored copy when the API is unavailable.
func (h *Handler) GetHolidays(c *gin.Context) {
	year := h.today().Year()
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1900 || y > 2200 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "year must be a four digit number"})
			return
		}
		year = y
	}

	if h.holidays != nil {
		hs, err := h.holidays.Year(c.Request.Context(), year)
		if err == nil {
			c.JSON(http.StatusOK, hs)
			return
		}
		logrus.WithError(err).WithField("year", year).Warn("holiday API failed; serving stored holidays")
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	hs, err := h.store.Holidays(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if hs == nil {
		hs = []engine.PublicHoliday{}
	}
	c.JSON(http.StatusOK, hs)
}
