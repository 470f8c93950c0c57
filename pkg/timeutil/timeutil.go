// Package timeutil provides calendar helpers for the club's local timezone.
// Scores, week buckets and daily usage all follow the local calendar, so
// every helper takes the location explicitly.
//
// A "civil date" in this package is a calendar day represented as midnight
// UTC. That is what a PostgreSQL DATE column scans into, so civil dates
// compare equal no matter which store produced them.
package timeutil

import (
	"time"
)

// DefaultTimezone is the club's home timezone.
const DefaultTimezone = "Asia/Tehran"

// Common layouts.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// LoadLocation resolves name, falling back to UTC when it is unknown.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(orUTC(loc))
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
}

// CivilDate returns the local calendar date of t as a civil date.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	l := t.In(orUTC(loc))
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CivilToLocal returns local midnight of the civil date d.
func CivilToLocal(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, orUTC(loc))
}

// DaysSinceSaturday maps Saturday to 0, Sunday to 1 and Friday to 6.
func DaysSinceSaturday(wd time.Weekday) int {
	return (int(wd) + 1) % 7
}

// StartOfWeek returns the civil Saturday on or before the local date of t.
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	d := CivilDate(t, loc)
	return d.AddDate(0, 0, -DaysSinceSaturday(d.Weekday()))
}

// EndOfWeek returns the civil Friday closing the week that contains t.
func EndOfWeek(t time.Time, loc *time.Location) time.Time {
	return StartOfWeek(t, loc).AddDate(0, 0, 6)
}

// wallClock drops the zone offset so two local readings can be subtracted
// the way a person reading a wall clock would.
func wallClock(t time.Time, loc *time.Location) time.Time {
	l := t.In(orUTC(loc))
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

// WallClockSub returns to - from measured on the local wall clock.
func WallClockSub(to, from time.Time, loc *time.Location) time.Duration {
	return wallClock(to, loc).Sub(wallClock(from, loc))
}

// FullDays returns the number of whole days in d, floored. Negative
// durations floor towards minus infinity.
func FullDays(d time.Duration) int {
	const day = 24 * time.Hour
	days := int(d / day)
	if d < 0 && d%day != 0 {
		days--
	}
	return days
}

// DaysBetween returns the signed number of calendar days from civil date a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// FormatCivil formats a civil date as YYYY-MM-DD.
func FormatCivil(d time.Time) string {
	return d.UTC().Format(FormatDate)
}

// ParseCivil parses a YYYY-MM-DD string into a civil date.
func ParseCivil(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, time.UTC)
}
