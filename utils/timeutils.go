package utils

import (
	"time"
)

// RequestTimeLayout is the timestamp layout the DSBmobile endpoint expects.
const RequestTimeLayout = "2006-01-02T15:04:05.000-0700"

// Iso8601Now returns the current time in ISO8601 format
func Iso8601Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Iso8601 formats t in UTC, or returns "" for the zero time.
func Iso8601(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FormatRequestTime formats t for the Date/LastUpdate request fields.
func FormatRequestTime(t time.Time) string {
	return t.Format(RequestTimeLayout)
}

// Millis converts a millisecond config value into a duration, using fallback when ms <= 0.
func Millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
