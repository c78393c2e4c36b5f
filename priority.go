package prioexec

import "strings"

// Priority orders tasks in the pending queue. Higher values are dispatched first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// AllPriorities lists every valid priority from lowest to highest.
var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool { return p >= PriorityLow && p <= PriorityHigh }

// HigherThan reports whether p is dispatched before other.
func (p Priority) HigherThan(other Priority) bool { return p > other }

// ParsePriority converts a name (case-insensitive) into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(s) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	default:
		return 0, ErrUnknownPriority
	}
}
