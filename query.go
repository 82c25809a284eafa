package dsbplan

import (
	"strconv"
	"strings"
)

// MaxLimit is the largest accepted value of the limit query parameter.
const MaxLimit = 100

// queryError reports an invalid query parameter.
type queryError struct{ Msg string }

func (e *queryError) Error() string { return e.Msg }

// parseLimit returns 0 (no limit) for an empty parameter.
func parseLimit(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > MaxLimit {
		return 0, &queryError{Msg: "limit must be an integer between 1 and " + strconv.Itoa(MaxLimit)}
	}
	return v, nil
}

func limitSlice[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}
