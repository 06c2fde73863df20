package models

import "time"

// Timestamps are persisted as RFC 3339 text in both the local cache and the
// durable store, matching the column type (TEXT) the shared tables use.

func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a persisted timestamp. Malformed values scan as the zero
// time rather than failing the whole row; rows written by older builds used
// a handful of layouts.
func ParseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
