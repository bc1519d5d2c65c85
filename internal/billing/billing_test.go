package billing

import (
	"testing"
	"time"

	"canteen/internal/meal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEntitled(t *testing.T) {
	sub := Subscription{
		Status:    StatusActive,
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 1, 31),
		Meals:     meal.Set{meal.Lunch: true, meal.Dinner: true},
	}

	tests := []struct {
		name string
		mod  func(Subscription) Subscription
		meal meal.Type
		day  time.Time
		want bool
	}{
		{name: "mid-range lunch", meal: meal.Lunch, day: day(2024, 1, 15), want: true},
		{name: "end date inclusive", meal: meal.Dinner, day: day(2024, 1, 31), want: true},
		{name: "day after end", meal: meal.Lunch, day: day(2024, 2, 1), want: false},
		{name: "day before start", meal: meal.Lunch, day: day(2023, 12, 31), want: false},
		{name: "start date inclusive", meal: meal.Lunch, day: day(2024, 1, 1), want: true},
		{name: "meal not in package", meal: meal.Breakfast, day: day(2024, 1, 15), want: false},
		{
			name: "suspended not honoured",
			mod:  func(s Subscription) Subscription { s.Status = StatusSuspended; return s },
			meal: meal.Lunch, day: day(2024, 1, 15), want: false,
		},
		{
			name: "cancelled not honoured",
			mod:  func(s Subscription) Subscription { s.Status = StatusCancelled; return s },
			meal: meal.Lunch, day: day(2024, 1, 15), want: false,
		},
		{
			name: "clock time on end date ignored",
			meal: meal.Dinner, day: time.Date(2024, 1, 31, 21, 15, 0, 0, time.UTC), want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sub
			if tt.mod != nil {
				s = tt.mod(s)
			}
			if got := Entitled(s, tt.meal, tt.day); got != tt.want {
				t.Errorf("Entitled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusActive, StatusSuspended, true},
		{StatusSuspended, StatusActive, true},
		{StatusActive, StatusCancelled, true},
		{StatusSuspended, StatusCancelled, true},
		{StatusActive, StatusExpired, true},
		{StatusCancelled, StatusActive, false},
		{StatusExpired, StatusActive, false},
		{StatusCancelled, StatusExpired, false},
		{StatusSuspended, StatusExpired, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
