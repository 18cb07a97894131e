package timetools

import (
	"fmt"
	"math"
	"strings"
	"time"
	_ "time/tzdata" // zone lookups must not depend on the host's zoneinfo

	"github.com/araddon/dateparse"
)

// ParseIn parses a loosely formatted date or date-time. Values without an explicit
// offset are read as wall clock time in loc.
func ParseIn(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	t, err := dateparse.ParseIn(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return t, nil
}

// LoadZone resolves an IANA zone name.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("empty timezone")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Week returns the week of the year with weeks starting on Sunday, where the
// week containing January 1st is week 1. The last days of December belong to
// week 1 of the next year when that week contains the next January 1st.
func Week(t time.Time) int {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if m == time.December && d > 25 {
		nextJan1 := time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		endOfWeek := day.AddDate(0, 0, 6-int(day.Weekday()))
		if !nextJan1.After(endOfWeek) {
			return 1
		}
	}

	jan1 := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	firstSunday := jan1.AddDate(0, 0, -int(jan1.Weekday()))
	days := int(day.Sub(firstSunday).Hours() / 24)
	return days/7 + 1
}

// ISOWeek returns the ISO 8601 week number of t.
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}

// HourDifference returns the offset of to minus the offset of from at instant t,
// in hours rounded half up.
func HourDifference(t time.Time, from, to *time.Location) int {
	_, fromOff := t.In(from).Zone()
	_, toOff := t.In(to).Zone()
	return int(math.Floor(float64(toOff-fromOff)/3600 + 0.5))
}
