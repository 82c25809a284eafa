package plan

import (
	"slices"
	"strings"
)

const (
	PriorityToday    = 1
	PriorityTomorrow = 2
	PriorityOther    = 3
)

// SortPriority derives the display priority from a group name such as
// "Schüler heute" or "Lehrer morgen".
func SortPriority(groupName string) int {
	name := strings.ToLower(groupName)
	switch {
	case strings.Contains(name, "heute"):
		return PriorityToday
	case strings.Contains(name, "morgen"):
		return PriorityTomorrow
	default:
		return PriorityOther
	}
}

// Compare orders plans by priority, then by date string. Empty dates sort
// after any non-empty date; two empty dates compare equal.
func Compare(a, b SubstitutionPlan) int {
	if a.SortPriority != b.SortPriority {
		return a.SortPriority - b.SortPriority
	}
	switch {
	case a.Date == b.Date:
		return 0
	case a.Date == "":
		return 1
	case b.Date == "":
		return -1
	}
	return strings.Compare(a.Date, b.Date)
}

// Sort orders plans in place using a stable sort.
func Sort(plans []SubstitutionPlan) {
	slices.SortStableFunc(plans, Compare)
}
