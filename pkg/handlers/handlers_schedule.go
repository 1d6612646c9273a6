package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turnoverhq/turnover-api/pkg/models"
	"github.com/turnoverhq/turnover-api/pkg/service"
)

// EligibleStaff returns the staff who can work the given date
func (h *Handler) EligibleStaff(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staff, err := h.Scheduling.EligibleStaff(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not resolve eligible staff"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  date.Format(dateLayout),
		"staff": staff,
	})
}

// PendingObligations lists the unassigned cleaning tasks for a date
func (h *Handler) PendingObligations(c *gin.Context) {
	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obligations, err := h.Scheduling.PendingObligations(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list obligations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        date.Format(dateLayout),
		"obligations": obligations,
	})
}

// AutoAssign runs the two-phase assignment pass for a date
func (h *Handler) AutoAssign(c *gin.Context) {
	var req struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pending, err := h.Scheduling.PendingObligations(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list obligations"})
		return
	}

	made, err := h.Scheduling.AutoAssign(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Assignment pass failed"})
		return
	}

	c.JSON(http.StatusOK, models.AutoAssignResult{
		Date:            date.Format(dateLayout),
		AssignmentsMade: made,
		PendingBefore:   len(pending),
	})
}

// ManualAssign places one obligation with one staff member, bypassing
// eligibility and capacity checks
func (h *Handler) ManualAssign(c *gin.Context) {
	var req struct {
		ObligationID uint `json:"obligation_id" binding:"required"`
		StaffID      uint `json:"staff_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obligation, err := h.Scheduling.Assign(req.ObligationID, req.StaffID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Obligation or staff not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not assign obligation"})
		return
	}

	c.JSON(http.StatusOK, obligation)
}

// Unassign resets an obligation to pending
func (h *Handler) Unassign(c *gin.Context) {
	var req struct {
		ObligationID uint `json:"obligation_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obligation, err := h.Scheduling.Unassign(req.ObligationID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Obligation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not unassign obligation"})
		return
	}

	c.JSON(http.StatusOK, obligation)
}
