package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/turnoverhq/turnover-api/pkg/models"
)

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// ListStaff returns the full roster
func (h *Handler) ListStaff(c *gin.Context) {
	var staff []models.Staff
	if err := h.DB.Order("id asc").Find(&staff).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// CreateStaff adds a staff member to the roster
func (h *Handler) CreateStaff(c *gin.Context) {
	var req struct {
		Name   string   `json:"name" binding:"required"`
		Role   string   `json:"role"`
		Rating *float64 `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role == "" {
		req.Role = models.RoleHousekeeper
	}
	if req.Role != models.RoleHousekeeper && req.Role != models.RoleManager {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be housekeeper or manager"})
		return
	}

	staff := models.Staff{Name: req.Name, Role: req.Role, Rating: req.Rating}
	if err := h.DB.Create(&staff).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create staff"})
		return
	}
	c.JSON(http.StatusCreated, staff)
}

// DeleteStaff removes a staff member, resetting their obligations to
// pending first so no obligation dangles on a deleted assignee
func (h *Handler) DeleteStaff(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var staff models.Staff
	if err := h.DB.First(&staff, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
		return
	}

	if err := h.Scheduling.ReleaseStaff(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not release obligations"})
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("staff_id = ?", id).Delete(&models.AvailabilityWindow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("staff_id = ?", id).Delete(&models.AbsenceInterval{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Staff{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete staff"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Staff deleted"})
}

// ListWindows returns one staff member's weekly availability windows
func (h *Handler) ListWindows(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var windows []models.AvailabilityWindow
	if err := h.DB.Where("staff_id = ?", id).Order("weekday asc, id asc").Find(&windows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list windows"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"windows": windows})
}

// CreateWindow adds a recurring weekly availability window
func (h *Handler) CreateWindow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Weekday   int    `json:"weekday"`
		StartTime string `json:"start_time" binding:"required"`
		EndTime   string `json:"end_time" binding:"required"`
		MaxPerDay int    `json:"max_per_day"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxPerDay == 0 {
		req.MaxPerDay = 3
	}
	if err := validateWindow(req.Weekday, req.StartTime, req.EndTime, req.MaxPerDay); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var staff models.Staff
	if err := h.DB.First(&staff, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
		return
	}

	window := models.AvailabilityWindow{
		StaffID:   id,
		Weekday:   req.Weekday,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		MaxPerDay: req.MaxPerDay,
	}
	if err := h.DB.Create(&window).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create window"})
		return
	}
	c.JSON(http.StatusCreated, window)
}

// DeleteWindow removes an availability window
func (h *Handler) DeleteWindow(c *gin.Context) {
	staffID, ok := paramID(c, "id")
	if !ok {
		return
	}
	windowID, ok := paramID(c, "wid")
	if !ok {
		return
	}

	result := h.DB.Where("staff_id = ?", staffID).Delete(&models.AvailabilityWindow{}, windowID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete window"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Window not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Window deleted"})
}

// ListAbsences returns one staff member's absence intervals
func (h *Handler) ListAbsences(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var absences []models.AbsenceInterval
	if err := h.DB.Where("staff_id = ?", id).Order("start_date asc").Find(&absences).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list absences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"absences": absences})
}

// CreateAbsence records an absence interval, unapproved until the
// approval workflow flips it
func (h *Handler) CreateAbsence(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date" binding:"required"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end, err := validateInterval(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var staff models.Staff
	if err := h.DB.First(&staff, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
		return
	}

	absence := models.AbsenceInterval{
		StaffID:   id,
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
	}
	if err := h.DB.Create(&absence).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create absence"})
		return
	}
	c.JSON(http.StatusCreated, absence)
}

// ApproveAbsence marks an absence interval approved, which starts
// excluding the staff member from eligibility on the covered dates
func (h *Handler) ApproveAbsence(c *gin.Context) {
	staffID, ok := paramID(c, "id")
	if !ok {
		return
	}
	absenceID, ok := paramID(c, "aid")
	if !ok {
		return
	}

	result := h.DB.Model(&models.AbsenceInterval{}).
		Where("id = ? AND staff_id = ?", absenceID, staffID).
		Update("approved", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not approve absence"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Absence not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Absence approved"})
}

// DeleteAbsence removes an absence interval
func (h *Handler) DeleteAbsence(c *gin.Context) {
	staffID, ok := paramID(c, "id")
	if !ok {
		return
	}
	absenceID, ok := paramID(c, "aid")
	if !ok {
		return
	}

	result := h.DB.Where("staff_id = ?", staffID).Delete(&models.AbsenceInterval{}, absenceID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete absence"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Absence not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Absence deleted"})
}

// ListProperties returns the property portfolio
func (h *Handler) ListProperties(c *gin.Context) {
	var properties []models.Property
	if err := h.DB.Order("id asc").Find(&properties).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list properties"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": properties})
}

// CreateProperty adds a property
func (h *Handler) CreateProperty(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Address     string `json:"address"`
		CalendarURL string `json:"calendar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property := models.Property{Name: req.Name, Address: req.Address, CalendarURL: req.CalendarURL}
	if err := h.DB.Create(&property).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create property"})
		return
	}
	c.JSON(http.StatusCreated, property)
}

// SetDefaultStaff sets or clears a property's preferred cleaner
func (h *Handler) SetDefaultStaff(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		StaffID *uint `json:"staff_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.StaffID != nil {
		var staff models.Staff
		if err := h.DB.First(&staff, *req.StaffID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
			return
		}
	}

	result := h.DB.Model(&models.Property{}).Where("id = ?", id).Update("default_staff_id", req.StaffID)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update property"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Default staff updated"})
}
