package models

import "time"

// TSLayout is the wire format for timestamps crossing the store boundary:
// millisecond precision, UTC, literal T/Z separators. Both the raw documents
// and the aggregation buckets use it, so it must round-trip exactly.
const TSLayout = "2006-01-02T15:04:05.000Z"

// FormatTS serializes a timestamp in the wire format
func FormatTS(t time.Time) string {
	return t.UTC().Format(TSLayout)
}

// ParseTS parses a wire-format timestamp into a UTC instant
func ParseTS(s string) (time.Time, error) {
	t, err := time.Parse(TSLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
