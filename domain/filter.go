package domain

import (
	"fmt"
	"math"
	"strings"
)

// Filter partitions tasks by completion status.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

// ParseFilter maps the empty string to FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterCompleted, FilterPending:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
}

// Keep reports whether t passes the status filter.
func (f Filter) Keep(t Task) bool {
	switch f {
	case FilterCompleted:
		return t.Completed
	case FilterPending:
		return !t.Completed
	default:
		return true
	}
}

// Stats aggregates counts over the whole collection.
type Stats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

// NewStats derives pending and the rounded completion percentage.
func NewStats(total, completed int) Stats {
	s := Stats{Total: total, Completed: completed, Pending: total - completed}
	if total > 0 {
		s.CompletionRate = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return s
}
