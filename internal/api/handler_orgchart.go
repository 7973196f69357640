package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"absence-visualizer-backend/internal/engine"
)

type records struct {
	employees []engine.Employee
	absences  []engine.AbsenceRecord
	holidays  []engine.PublicHoliday
}

// load reads everything needed to resolve statuses on date.
func (h *Handler) load(ctx context.Context, date time.Time) (*records, error) {
	employees, err := h.store.Employees(ctx)
	if err != nil {
		return nil, err
	}
	absences, err := h.store.Absences(ctx, date, date)
	if err != nil {
		return nil, err
	}
	holidays, err := h.store.Holidays(ctx, date, date)
	if err != nil {
		return nil, err
	}
	return &records{employees: employees, absences: absences, holidays: holidays}, nil
}

// GetTree handles GET /api/tree?date=&mode=.
func (h *Handler) GetTree(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		respondError(c, err)
		return
	}
	mode, err := engine.ParseMode(c.Query("mode"))
	if err != nil {
		respondError(c, err)
		return
	}

	recs, err := h.load(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}

	h.treeMu.Lock()
	defer h.treeMu.Unlock()
	nodes, err := engine.BuildTree(recs.employees, recs.absences, recs.holidays, date, mode,
		engine.WithOrganizationName(h.orgName), engine.WithMemo(h.memo))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":  engine.FormatDate(date),
		"mode":  mode,
		"nodes": nodes,
	})
}

// GetStatus handles GET /api/status/:employee_id?date=.
func (h *Handler) GetStatus(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Param("employee_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}
	date, err := h.dateQuery(c, "date")
	if err != nil {
		respondError(c, err)
		return
	}

	recs, err := h.load(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	snapshot, err := engine.NewSnapshot(recs.employees, recs.absences, recs.holidays)
	if err != nil {
		respondError(c, err)
		return
	}
	status, err := snapshot.ResolveStatus(employeeID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employeeId": employeeID,
		"date":       engine.FormatDate(date),
		"status":     status,
	})
}

// GetAvailabilityHistory handles GET /api/status/:employee_id/history?limit=.
func (h *Handler) GetAvailabilityHistory(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Param("employee_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid employee ID"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := h.store.AvailabilityHistory(c.Request.Context(), employeeID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	type period struct {
		Status string    `json:"status"`
		Label  string    `json:"label"`
		From   time.Time `json:"from"`
		To     time.Time `json:"to"`
	}
	out := make([]period, len(history))
	for i, r := range history {
		out[i] = period{Status: r.Status, Label: r.Label, From: r.PeriodStart, To: r.PeriodEnd}
	}
	c.JSON(http.StatusOK, out)
}
