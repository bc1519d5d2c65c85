package meal

import (
	"fmt"
	"strings"
)

// Type identifies one of the four daily meal services.
type Type string

const (
	Breakfast Type = "BREAKFAST"
	Lunch     Type = "LUNCH"
	Snacks    Type = "SNACKS"
	Dinner    Type = "DINNER"
)

// All lists meal types in serving order.
var All = []Type{Breakfast, Lunch, Snacks, Dinner}

// Parse normalises a meal type string.
func Parse(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range All {
		if t == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown meal type %q", s)
}

// Set is an inclusion set of meal types, stored as a comma-separated
// string in the packages table.
type Set map[Type]bool

// ParseSet parses a comma-separated meal list; unknown entries are an error.
func ParseSet(csv string) (Set, error) {
	set := Set{}
	if strings.TrimSpace(csv) == "" {
		return set, nil
	}
	for _, part := range strings.Split(csv, ",") {
		t, err := Parse(part)
		if err != nil {
			return nil, err
		}
		set[t] = true
	}
	return set, nil
}

// String renders the set in serving order for storage.
func (s Set) String() string {
	var parts []string
	for _, m := range All {
		if s[m] {
			parts = append(parts, string(m))
		}
	}
	return strings.Join(parts, ",")
}

// Contains reports whether the set includes t.
func (s Set) Contains(t Type) bool { return s[t] }
