package models

import "time"

// Staff role values. Only housekeepers participate in scheduling.
const (
	RoleHousekeeper = "housekeeper"
	RoleManager     = "manager"
)

// Obligation status values.
const (
	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
)

// Staff represents a housekeeping staff member.
//
// LoadCount is a denormalized running count of obligations currently
// assigned to this staff member. Its only writers are the assignment
// service's setAssignee path.
type Staff struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Role      string    `gorm:"not null;default:'housekeeper';index" json:"role"`
	LoadCount int       `gorm:"default:0" json:"load_count"`
	Rating    *float64  `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Windows  []AvailabilityWindow `gorm:"foreignKey:StaffID" json:"windows,omitempty"`
	Absences []AbsenceInterval    `gorm:"foreignKey:StaffID" json:"absences,omitempty"`
}

// AvailabilityWindow is a recurring weekly working window for one staff
// member. Weekday follows calendar convention: 0=Sunday .. 6=Saturday.
type AvailabilityWindow struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	StaffID   uint   `gorm:"not null;index" json:"staff_id"`
	Weekday   int    `gorm:"not null" json:"weekday"`
	StartTime string `gorm:"not null" json:"start_time"` // "15:04"
	EndTime   string `gorm:"not null" json:"end_time"`
	MaxPerDay int    `gorm:"default:3" json:"max_per_day"`
}

// AbsenceInterval is a closed date range [StartDate, EndDate] during which
// a staff member is away. Only approved intervals exclude the staff member
// from eligibility; pending ones are inert until the approval workflow
// flips the flag.
type AbsenceInterval struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StaffID   uint      `gorm:"not null;index" json:"staff_id"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null" json:"end_date"`
	Approved  bool      `gorm:"default:false" json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Property is a rental unit whose checkouts generate cleaning obligations.
// DefaultStaffID, when set, is consulted by the assignment engine before
// generic load balancing.
type Property struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Address        string    `json:"address,omitempty"`
	CalendarURL    string    `json:"calendar_url,omitempty"`
	DefaultStaffID *uint     `gorm:"index" json:"default_staff_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Obligation is a cleaning task derived from a booking's checkout.
// ExternalUID keys the obligation to its source calendar event so that
// repeated feed syncs upsert instead of duplicating.
//
// Invariant: StaffID != nil implies Status != pending.
type Obligation struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PropertyID   uint      `gorm:"not null;index" json:"property_id"`
	ExternalUID  string    `gorm:"unique;not null" json:"external_uid"`
	CheckoutDate time.Time `gorm:"not null;index" json:"checkout_date"`
	Status       string    `gorm:"not null;default:'pending';index" json:"status"`
	StaffID      *uint     `gorm:"index" json:"staff_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AutoAssignResult is returned by the auto-assign endpoint.
type AutoAssignResult struct {
	Date            string `json:"date"`
	AssignmentsMade int    `json:"assignments_made"`
	PendingBefore   int    `json:"pending_before"`
}

// SyncObligation is one calendar event in an ingestion batch.
type SyncObligation struct {
	ExternalUID  string `json:"external_uid" binding:"required"`
	PropertyID   uint   `json:"property_id" binding:"required"`
	CheckoutDate string `json:"checkout_date" binding:"required"` // "2006-01-02"
}

// SyncInput is the batch body the calendar-sync collaborator posts.
type SyncInput struct {
	Obligations []SyncObligation `json:"obligations" binding:"required"`
}
