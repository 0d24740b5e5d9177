package timezone

import (
	"fmt"
	"time"
)

// all observations are recorded in UTC so that history written by
// machines in different zones sorts and compares the same way
var Location = time.UTC

// Layout is the ISO-8601 form persisted for every timestamp.
const Layout = time.RFC3339Nano

func Now() time.Time {
	return time.Now().In(Location)
}

func Format(t time.Time) string {
	return t.In(Location).Format(Layout)
}

// Parse accepts any RFC 3339 timestamp (with or without fractional
// seconds) and normalizes it to UTC.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.In(Location), nil
}
