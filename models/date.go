package models

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// CivilDate drops the clock part of t, keeping the calendar date as seen in
// t's own location, and returns it at midnight UTC.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts either a plain calendar date (2006-01-02) or an RFC 3339
// timestamp and returns the calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return CivilDate(t), nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
