package billing

import (
	"errors"
	"time"

	"canteen/internal/meal"
)

// Status is a subscription lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusSuspended Status = "SUSPENDED"
	StatusCancelled Status = "CANCELLED"
)

// ErrBadTransition is returned for a disallowed status change.
var ErrBadTransition = errors.New("invalid subscription status transition")

// transitions encodes the lifecycle: suspension is reversible, cancelled
// and expired are terminal.
var transitions = map[Status]map[Status]bool{
	StatusActive:    {StatusSuspended: true, StatusCancelled: true, StatusExpired: true},
	StatusSuspended: {StatusActive: true, StatusCancelled: true},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Package defines a meal entitlement bundle.
type Package struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DurationDays int       `json:"duration_days"`
	Price        float64   `json:"price"`
	Meals        meal.Set  `json:"meals_included"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subscription links a student to a package for a facility over a date
// range; EndDate is inclusive.
type Subscription struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	PackageID string    `json:"package_id"`
	Facility  string    `json:"facility"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Status    Status    `json:"status"`
	Meals     meal.Set  `json:"meals_included"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// dateOnly truncates to the calendar day in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Covers reports whether the subscription date range includes day,
// end date inclusive.
func (s Subscription) Covers(day time.Time) bool {
	d := dateOnly(day)
	return !d.Before(dateOnly(s.StartDate)) && !d.After(dateOnly(s.EndDate))
}

// Entitled implements the scan honour invariant: an ACTIVE subscription
// covering the day whose package includes the meal.
func Entitled(s Subscription, m meal.Type, day time.Time) bool {
	return s.Status == StatusActive && s.Covers(day) && s.Meals.Contains(m)
}
