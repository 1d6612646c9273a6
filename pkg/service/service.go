package service

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/turnoverhq/turnover-api/pkg/logging"
	"github.com/turnoverhq/turnover-api/pkg/models"
	"github.com/turnoverhq/turnover-api/pkg/scheduler"
)

// ErrNotFound is returned when a referenced obligation or staff member
// does not exist. No state changes when it is returned.
var ErrNotFound = errors.New("not found")

// Scheduling is the assignment service: everything that reads or mutates
// obligations, assignees and load counters goes through it.
type Scheduling struct {
	DB  *gorm.DB
	log *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a scheduling service on top of a gorm store.
func New(db *gorm.DB) *Scheduling {
	return &Scheduling{
		DB:    db,
		log:   logging.Get(),
		locks: make(map[string]*sync.Mutex),
	}
}

// dateLock returns the mutex serializing writes for one calendar date.
// Auto-assign and manual overrides for the same date take this lock, so
// two concurrent passes cannot both read the same load snapshot and
// overshoot a staff member's daily cap.
func (s *Scheduling) dateLock(date time.Time) *sync.Mutex {
	key := date.Format("2006-01-02")
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// dayBounds returns the half-open interval [00:00 of date, 00:00 next day).
func dayBounds(date time.Time) (time.Time, time.Time) {
	from := scheduler.DateOnly(date)
	return from, from.AddDate(0, 0, 1)
}

// EligibleStaff resolves the staff eligible to work a date: housekeepers
// with a window on the date's weekday and no approved absence covering it.
func (s *Scheduling) EligibleStaff(date time.Time) ([]models.Staff, error) {
	var staff []models.Staff
	if err := s.DB.Where("role = ?", models.RoleHousekeeper).Find(&staff).Error; err != nil {
		return nil, err
	}

	var windows []models.AvailabilityWindow
	if err := s.DB.Where("weekday = ?", scheduler.Weekday(date)).Find(&windows).Error; err != nil {
		return nil, err
	}

	d := scheduler.DateOnly(date)
	var absences []models.AbsenceInterval
	if err := s.DB.Where("approved = ? AND start_date <= ? AND end_date >= ?", true, d, d).Find(&absences).Error; err != nil {
		return nil, err
	}

	return scheduler.EligibleStaff(staff, windows, absences, date), nil
}

// PendingObligations lists the pending obligations whose checkout falls on
// the given date, ordered by ID for reproducible assignment runs.
func (s *Scheduling) PendingObligations(date time.Time) ([]models.Obligation, error) {
	from, to := dayBounds(date)
	var obligations []models.Obligation
	err := s.DB.
		Where("checkout_date >= ? AND checkout_date < ? AND status = ?", from, to, models.StatusPending).
		Order("id asc").
		Find(&obligations).Error
	return obligations, err
}

// loadSnapshot counts, per staff member, the obligations on the date that
// are already assigned or completed. It seeds the engine's fairness
// bookkeeping and is never mutated by this read.
func (s *Scheduling) loadSnapshot(tx *gorm.DB, date time.Time) (map[uint]int, error) {
	from, to := dayBounds(date)
	var taken []models.Obligation
	err := tx.
		Where("checkout_date >= ? AND checkout_date < ? AND status IN ? AND staff_id IS NOT NULL",
			from, to, []string{models.StatusAssigned, models.StatusCompleted}).
		Find(&taken).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int)
	for _, o := range taken {
		counts[*o.StaffID]++
	}
	return counts, nil
}

// AutoAssign runs the two-phase assignment for a date and returns how many
// obligations moved from pending to assigned. Zero eligible staff or zero
// pending obligations is a normal no-op, not an error.
func (s *Scheduling) AutoAssign(date time.Time) (int, error) {
	lock := s.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	eligible, err := s.EligibleStaff(date)
	if err != nil {
		return 0, err
	}
	pending, err := s.PendingObligations(date)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 || len(pending) == 0 {
		return 0, nil
	}

	// Weekday windows for capacity lookups, keyed per staff member.
	var windows []models.AvailabilityWindow
	if err := s.DB.Where("weekday = ?", scheduler.Weekday(date)).Find(&windows).Error; err != nil {
		return 0, err
	}
	windowsByStaff := make(map[uint][]models.AvailabilityWindow)
	for _, w := range windows {
		windowsByStaff[w.StaffID] = append(windowsByStaff[w.StaffID], w)
	}

	// Property preferences for phase 1.
	propertyIDs := make([]uint, 0, len(pending))
	seen := make(map[uint]bool)
	for _, o := range pending {
		if !seen[o.PropertyID] {
			seen[o.PropertyID] = true
			propertyIDs = append(propertyIDs, o.PropertyID)
		}
	}
	var properties []models.Property
	if err := s.DB.Where("id IN ?", propertyIDs).Find(&properties).Error; err != nil {
		return 0, err
	}
	defaultStaff := make(map[uint]*uint, len(properties))
	for i := range properties {
		defaultStaff[properties[i].ID] = properties[i].DefaultStaffID
	}

	assigned := 0
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		snapshot, err := s.loadSnapshot(tx, date)
		if err != nil {
			return err
		}

		candidates := make([]scheduler.Candidate, 0, len(eligible))
		for _, st := range eligible {
			maxPerDay := 0
			if w := scheduler.WindowFor(windowsByStaff[st.ID], scheduler.Weekday(date)); w != nil {
				maxPerDay = w.MaxPerDay
			}
			candidates = append(candidates, scheduler.Candidate{
				StaffID:   st.ID,
				MaxPerDay: maxPerDay,
				Count:     snapshot[st.ID],
			})
		}

		tasks := make([]scheduler.Task, 0, len(pending))
		byID := make(map[uint]*models.Obligation, len(pending))
		for i := range pending {
			o := &pending[i]
			byID[o.ID] = o
			tasks = append(tasks, scheduler.Task{
				ObligationID:   o.ID,
				DefaultStaffID: defaultStaff[o.PropertyID],
			})
		}

		for _, d := range scheduler.Run(tasks, candidates) {
			staffID := d.StaffID
			if err := s.setAssignee(tx, byID[d.ObligationID], &staffID); err != nil {
				return err
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("auto-assign complete",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("pending", len(pending)),
		zap.Int("assigned", assigned))
	return assigned, nil
}

// Assign is the manual override: it places an obligation with a specific
// staff member without eligibility or capacity checks. Replacing an
// existing assignee rebalances both load counters.
func (s *Scheduling) Assign(obligationID, staffID uint) (*models.Obligation, error) {
	var obligation models.Obligation
	if err := s.DB.First(&obligation, obligationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var staff models.Staff
	if err := s.DB.First(&staff, staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lock := s.dateLock(obligation.CheckoutDate)
	lock.Lock()
	defer lock.Unlock()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&obligation, obligationID).Error; err != nil {
			return err
		}
		return s.setAssignee(tx, &obligation, &staffID)
	})
	if err != nil {
		return nil, err
	}
	return &obligation, nil
}

// Unassign resets an obligation to pending, decrementing the former
// assignee's load counter.
func (s *Scheduling) Unassign(obligationID uint) (*models.Obligation, error) {
	var obligation models.Obligation
	if err := s.DB.First(&obligation, obligationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lock := s.dateLock(obligation.CheckoutDate)
	lock.Lock()
	defer lock.Unlock()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&obligation, obligationID).Error; err != nil {
			return err
		}
		return s.setAssignee(tx, &obligation, nil)
	})
	if err != nil {
		return nil, err
	}
	return &obligation, nil
}

// ReleaseStaff resets every obligation assigned to a staff member back to
// pending. Staff deletion must call this before removing the row.
func (s *Scheduling) ReleaseStaff(staffID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var obligations []models.Obligation
		if err := tx.Where("staff_id = ?", staffID).Find(&obligations).Error; err != nil {
			return err
		}
		for i := range obligations {
			if err := s.setAssignee(tx, &obligations[i], nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// setAssignee is the single mutator of the status/assignee pair and the
// staff load counters. Every code path that changes who cleans an
// obligation (engine apply, manual assign, unassign, staff release) must
// go through here so counters cannot drift from the assignment rows.
func (s *Scheduling) setAssignee(tx *gorm.DB, o *models.Obligation, newStaffID *uint) error {
	if o.StaffID == nil && newStaffID == nil {
		return nil
	}
	if o.StaffID != nil && newStaffID != nil && *o.StaffID == *newStaffID {
		return nil
	}

	if o.StaffID != nil {
		err := tx.Model(&models.Staff{}).Where("id = ?", *o.StaffID).
			UpdateColumn("load_count", gorm.Expr("load_count - ?", 1)).Error
		if err != nil {
			return err
		}
	}

	status := models.StatusPending
	if newStaffID != nil {
		status = models.StatusAssigned
		err := tx.Model(&models.Staff{}).Where("id = ?", *newStaffID).
			UpdateColumn("load_count", gorm.Expr("load_count + ?", 1)).Error
		if err != nil {
			return err
		}
	}

	o.StaffID = newStaffID
	o.Status = status
	return tx.Model(o).Select("staff_id", "status").Updates(map[string]interface{}{
		"staff_id": newStaffID,
		"status":   status,
	}).Error
}
