package domain

import (
	"fmt"
	"time"
)

// DayLayout is the storage format for calendar days.
const DayLayout = "2006-01-02"

// Clock is the time source threaded through every service.
type Clock func() time.Time

// SystemClock returns wall-clock time.
func SystemClock() time.Time { return time.Now() }

// DayOf returns the UTC calendar day of t.
func DayOf(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD calendar day as UTC midnight.
func ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad day %q", ErrInvalidInput, day)
	}
	return t, nil
}

// AddDays shifts a calendar day by n days. Invalid input yields "".
func AddDays(day string, n int) string {
	t, err := ParseDay(day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, n).Format(DayLayout)
}

// DaysBetween returns the whole days from -> to (negative if to is earlier).
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDay(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDay(to)
	if err != nil {
		return 0, err
	}
	return int((t.Unix() - f.Unix()) / 86400), nil
}
