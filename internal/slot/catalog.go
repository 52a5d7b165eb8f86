// Package slot defines the fixed daily grid of bookable time slots shared
// by every provider.
package slot

import (
	"fmt"
	"time"
)

// DateFormat is the wire format for appointment dates.
const DateFormat = "2006-01-02"

// Catalog is the ordered set of slot labels for one day. The grid is static:
// every provider is bookable into the same labels.
var Catalog = []string{
	"09:00-10:00",
	"10:00-11:00",
	"11:00-12:00",
	"12:00-13:00",
	"14:00-15:00",
	"15:00-16:00",
	"16:00-17:00",
	"17:00-18:00",
}

var catalogSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Catalog))
	for _, s := range Catalog {
		m[s] = struct{}{}
	}
	return m
}()

// IsValid reports whether label is a member of the catalog.
func IsValid(label string) bool {
	_, ok := catalogSet[label]
	return ok
}

// All returns a copy of the catalog in grid order.
func All() []string {
	out := make([]string, len(Catalog))
	copy(out, Catalog)
	return out
}

// ParseDate parses a YYYY-MM-DD date and normalizes it to midnight UTC so
// that equality comparisons ignore time-of-day.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return Normalize(t), nil
}

// Normalize strips the time-of-day component of t.
func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
