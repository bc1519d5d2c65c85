package sysconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"canteen/internal/meal"
)

// Config keys persisted in system_config.
const (
	KeyAutoMarkAttendance = "auto_mark_attendance"
	KeyQRCodeExpiryHours  = "qr_code_expiry_hours"
)

// Defaults applied when a key is absent from the store.
var defaults = map[string]string{
	"breakfast_start":     "07:00",
	"breakfast_end":       "09:30",
	"lunch_start":         "12:00",
	"lunch_end":           "14:30",
	"snacks_start":        "16:30",
	"snacks_end":          "18:00",
	"dinner_start":        "19:00",
	"dinner_end":          "21:30",
	KeyAutoMarkAttendance: "true",
	KeyQRCodeExpiryHours:  "0",
}

// Window is a daily time range in minutes since midnight, end exclusive.
type Window struct {
	Start int
	End   int
}

// Contains reports whether the clock time t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	mins := t.Hour()*60 + t.Minute()
	return mins >= w.Start && mins < w.End
}

// Snapshot is the typed view of system_config, loaded once and cached.
type Snapshot struct {
	Windows            map[meal.Type]Window
	AutoMarkAttendance bool
	QRCodeExpiryHours  int
}

// MealWindowAt returns the meal whose window contains t, if any.
func (s Snapshot) MealWindowAt(t time.Time) (meal.Type, bool) {
	for _, m := range meal.All {
		if w, ok := s.Windows[m]; ok && w.Contains(t) {
			return m, true
		}
	}
	return "", false
}

// parseClock parses an "HH:MM" string into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// buildSnapshot assembles a Snapshot from raw key/value rows, filling gaps
// from defaults.
func buildSnapshot(raw map[string]string) (Snapshot, error) {
	get := func(key string) string {
		if v, ok := raw[key]; ok {
			return v
		}
		return defaults[key]
	}

	snap := Snapshot{Windows: make(map[meal.Type]Window, len(meal.All))}
	for _, m := range meal.All {
		prefix := strings.ToLower(string(m))
		start, err := parseClock(get(prefix + "_start"))
		if err != nil {
			return Snapshot{}, fmt.Errorf("%s_start: %w", prefix, err)
		}
		end, err := parseClock(get(prefix + "_end"))
		if err != nil {
			return Snapshot{}, fmt.Errorf("%s_end: %w", prefix, err)
		}
		snap.Windows[m] = Window{Start: start, End: end}
	}

	snap.AutoMarkAttendance = get(KeyAutoMarkAttendance) == "true" || get(KeyAutoMarkAttendance) == "1"
	if n, err := strconv.Atoi(get(KeyQRCodeExpiryHours)); err == nil {
		snap.QRCodeExpiryHours = n
	}
	return snap, nil
}
