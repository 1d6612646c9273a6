package scheduler

import (
	"sort"
	"time"

	"github.com/turnoverhq/turnover-api/pkg/models"
)

// Weekday returns the calendar weekday of a date, 0=Sunday .. 6=Saturday.
func Weekday(date time.Time) int {
	return int(date.Weekday())
}

// DateOnly truncates a timestamp to its date in the timestamp's location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Covers reports whether an absence interval's closed date range
// [StartDate, EndDate] contains the given date. Times of day are ignored.
func Covers(a models.AbsenceInterval, date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(a.StartDate)) && !d.After(DateOnly(a.EndDate))
}

// WindowFor picks the availability window to consult for a weekday.
// When a staff member has several windows on the same weekday, the one
// with the lowest ID wins, so repeated runs consult the same window.
// Returns nil when no window matches.
func WindowFor(windows []models.AvailabilityWindow, weekday int) *models.AvailabilityWindow {
	var pick *models.AvailabilityWindow
	for i := range windows {
		w := &windows[i]
		if w.Weekday != weekday {
			continue
		}
		if pick == nil || w.ID < pick.ID {
			pick = w
		}
	}
	return pick
}

// EligibleStaff computes the staff eligible to work a date: every
// housekeeper with at least one availability window for the date's
// weekday and no approved absence covering the date. Duplicate windows
// for the same weekday are fine; only existence matters here.
//
// The result is sorted by staff ID so callers see a stable order.
func EligibleStaff(staff []models.Staff, windows []models.AvailabilityWindow, absences []models.AbsenceInterval, date time.Time) []models.Staff {
	weekday := Weekday(date)

	hasWindow := make(map[uint]bool)
	for _, w := range windows {
		if w.Weekday == weekday {
			hasWindow[w.StaffID] = true
		}
	}

	away := make(map[uint]bool)
	for _, a := range absences {
		if a.Approved && Covers(a, date) {
			away[a.StaffID] = true
		}
	}

	var eligible []models.Staff
	for _, s := range staff {
		if s.Role != models.RoleHousekeeper {
			continue
		}
		if hasWindow[s.ID] && !away[s.ID] {
			eligible = append(eligible, s)
		}
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible
}
