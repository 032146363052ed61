package shared

import (
	"time"
)

// DateRange is a half-open reporting window [From, To).
// A zero bound is treated as unbounded on that side.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Filter represents query filter options for list endpoints
type Filter struct {
	Range    DateRange
	Search   string
	Limit    int
	OrderDir string
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Limit:    100,
		OrderDir: "desc",
	}
}
