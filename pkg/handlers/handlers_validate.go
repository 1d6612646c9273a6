package handlers

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"
const clockLayout = "15:04"

// parseDate parses a calendar-date query or body value.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("date is required (format 2006-01-02)")
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New("invalid date, expected format 2006-01-02")
	}
	return d, nil
}

// validateWindow checks an availability-window submission before any
// store mutation.
func validateWindow(weekday int, startTime, endTime string, maxPerDay int) error {
	if weekday < 0 || weekday > 6 {
		return errors.New("weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	start, err := time.Parse(clockLayout, startTime)
	if err != nil {
		return errors.New("invalid start_time, expected format 15:04")
	}
	end, err := time.Parse(clockLayout, endTime)
	if err != nil {
		return errors.New("invalid end_time, expected format 15:04")
	}
	if !start.Before(end) {
		return errors.New("start_time must be before end_time")
	}
	if maxPerDay < 1 {
		return errors.New("max_per_day must be at least 1")
	}
	return nil
}

// validateInterval checks an absence-interval submission before any
// store mutation.
func validateInterval(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := parseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start_date, expected format 2006-01-02")
	}
	end, err := parseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end_date, expected format 2006-01-02")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end_date must not be before start_date")
	}
	return start, end, nil
}
