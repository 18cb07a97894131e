// Package timetools implements the date and time tools served over MCP.
package timetools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/santoshkal/mcp-server-http-time/pkg/reg"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
)

// Tool names.
const (
	ToolCurrentTime  = "current_time"
	ToolRelativeTime = "relative_time"
	ToolDaysInMonth  = "days_in_month"
	ToolGetTimestamp = "get_timestamp"
	ToolConvertTime  = "convert_time"
	ToolGetWeekYear  = "get_week_year"
)

// Tools holds the clock and the default zone shared by every time tool.
type Tools struct {
	now         func() time.Time
	defaultZone string
	loc         *time.Location
}

// New creates the tool set. defaultTimezone may be empty, in which case TZ is
// consulted and UTC is used as the last resort.
func New(defaultTimezone string) (*Tools, error) {
	name := defaultTimezone
	if name == "" {
		name = os.Getenv("TZ")
	}
	if name == "" {
		name = "UTC"
	}
	loc, err := LoadZone(name)
	if err != nil {
		if defaultTimezone != "" {
			return nil, err
		}
		name, loc = "UTC", time.UTC
	}
	return &Tools{now: time.Now, defaultZone: name, loc: loc}, nil
}

// SetClock replaces the time source.
func (t *Tools) SetClock(now func() time.Time) {
	t.now = now
}

// DefaultZone returns the name of the zone used when a caller names none.
func (t *Tools) DefaultZone() string {
	return t.defaultZone
}

// Register adds every time tool to r.
func (t *Tools) Register(r reg.Registrar) error {
	for _, tool := range t.Definitions() {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

// Definitions returns the time tools in their listing order.
func (t *Tools) Definitions() []reg.Tool {
	return []reg.Tool{
		{
			Name:        ToolCurrentTime,
			Title:       "Get Current Time",
			Description: "Returns the current time in UTC and a specified or default timezone.",
			Schema: schema.New(
				schema.Field{Name: "format", Type: schema.TypeString, Default: DefaultFormat,
					Description: "The format for the returned time string."},
				schema.Field{Name: "timezone", Type: schema.TypeString,
					Description: `The IANA timezone name (e.g., "America/New_York"). Defaults to the server's timezone.`},
			),
			Handler: t.currentTime,
		},
		{
			Name:        ToolRelativeTime,
			Title:       "Get Relative Time",
			Description: "Calculates the relative time from now to a given time string.",
			Schema: schema.New(
				schema.Field{Name: "time", Type: schema.TypeString, Required: true,
					Description: "The time to compare. Format: YYYY-MM-DD HH:mm:ss"},
			),
			Handler: t.relativeTime,
		},
		{
			Name:        ToolDaysInMonth,
			Title:       "Get Days in Month",
			Description: "Returns the number of days in the month of a given date.",
			Schema: schema.New(
				schema.Field{Name: "date", Type: schema.TypeString,
					Description: "The date to check. Format: YYYY-MM-DD"},
			),
			Handler: t.daysInMonth,
		},
		{
			Name:        ToolGetTimestamp,
			Title:       "Get Timestamp",
			Description: "Converts a date-time string to a Unix timestamp in milliseconds.",
			Schema: schema.New(
				schema.Field{Name: "time", Type: schema.TypeString,
					Description: "The time to convert. Format: YYYY-MM-DD HH:mm:ss"},
			),
			Handler: t.timestamp,
		},
		{
			Name:        ToolConvertTime,
			Title:       "Convert Timezone",
			Description: "Converts a time from a source timezone to a target timezone.",
			Schema: schema.New(
				schema.Field{Name: "sourceTimezone", Type: schema.TypeString, Required: true,
					Description: `The source IANA timezone name (e.g., "Asia/Shanghai").`},
				schema.Field{Name: "targetTimezone", Type: schema.TypeString, Required: true,
					Description: `The target IANA timezone name (e.g., "Europe/London").`},
				schema.Field{Name: "time", Type: schema.TypeString, Required: true,
					Description: `The time to convert. e.g., "2025-03-23 12:30:00".`},
			),
			Handler: t.convertTime,
		},
		{
			Name:        ToolGetWeekYear,
			Title:       "Get Week of Year",
			Description: "Returns the week and ISO week number for a given date.",
			Schema: schema.New(
				schema.Field{Name: "date", Type: schema.TypeString,
					Description: `The date to check. e.g., "2025-03-23"`},
			),
			Handler: t.weekYear,
		},
	}
}

// CurrentTimeResult is returned by current_time.
type CurrentTimeResult struct {
	UTCTime   string `json:"utcTime"`
	LocalTime string `json:"localTime"`
	Timezone  string `json:"timezone"`
}

// RelativeTimeResult is returned by relative_time.
type RelativeTimeResult struct {
	RelativeTime string `json:"relativeTime"`
}

// DaysInMonthResult is returned by days_in_month.
type DaysInMonthResult struct {
	Days int `json:"days"`
}

// TimestampResult is returned by get_timestamp.
type TimestampResult struct {
	Timestamp int64 `json:"timestamp"`
}

// ConvertTimeResult is returned by convert_time.
type ConvertTimeResult struct {
	ConvertedTime  string `json:"convertedTime"`
	HourDifference int    `json:"hourDifference"`
}

// WeekYearResult is returned by get_week_year.
type WeekYearResult struct {
	Week    int `json:"week"`
	ISOWeek int `json:"isoWeek"`
}

func (t *Tools) currentTime(_ context.Context, args schema.Args) (interface{}, error) {
	format := args.StringOr("format", DefaultFormat)
	zone := args.StringOr("timezone", t.defaultZone)
	loc, err := LoadZone(zone)
	if err != nil {
		return nil, err
	}
	utc := t.now().UTC()
	return CurrentTimeResult{
		UTCTime:   Format(utc, format),
		LocalTime: Format(utc.In(loc), format),
		Timezone:  zone,
	}, nil
}

func (t *Tools) relativeTime(_ context.Context, args schema.Args) (interface{}, error) {
	value, _ := args.String("time")
	then, err := ParseIn(value, t.loc)
	if err != nil {
		return nil, err
	}
	return RelativeTimeResult{
		RelativeTime: relativePhrase(then, t.now()),
	}, nil
}

// relativePhrase renders then against now as "3 days ago" or "in 2 hours".
func relativePhrase(then, now time.Time) string {
	if !then.After(now) {
		return humanize.RelTime(then, now, "ago", "")
	}
	phrase := strings.TrimSpace(humanize.RelTime(then, now, "", ""))
	if phrase == "now" {
		return phrase
	}
	return "in " + phrase
}

func (t *Tools) daysInMonth(_ context.Context, args schema.Args) (interface{}, error) {
	date, err := t.dateOrNow(args, "date")
	if err != nil {
		return nil, err
	}
	return DaysInMonthResult{Days: DaysInMonth(date)}, nil
}

func (t *Tools) timestamp(_ context.Context, args schema.Args) (interface{}, error) {
	ts, err := t.dateOrNow(args, "time")
	if err != nil {
		return nil, err
	}
	return TimestampResult{Timestamp: ts.UnixMilli()}, nil
}

func (t *Tools) convertTime(_ context.Context, args schema.Args) (interface{}, error) {
	sourceName, _ := args.String("sourceTimezone")
	targetName, _ := args.String("targetTimezone")
	value, _ := args.String("time")

	source, err := LoadZone(sourceName)
	if err != nil {
		return nil, err
	}
	target, err := LoadZone(targetName)
	if err != nil {
		return nil, err
	}
	sourceTime, err := ParseIn(value, source)
	if err != nil {
		return nil, err
	}
	return ConvertTimeResult{
		ConvertedTime:  Format(sourceTime.In(target), DefaultFormat),
		HourDifference: HourDifference(sourceTime, source, target),
	}, nil
}

func (t *Tools) weekYear(_ context.Context, args schema.Args) (interface{}, error) {
	date, err := t.dateOrNow(args, "date")
	if err != nil {
		return nil, err
	}
	return WeekYearResult{Week: Week(date), ISOWeek: ISOWeek(date)}, nil
}

// dateOrNow parses the named argument in the default zone, or returns the current
// time there when the argument is absent or empty.
func (t *Tools) dateOrNow(args schema.Args, name string) (time.Time, error) {
	value, ok := args.String(name)
	if !ok || value == "" {
		return t.now().In(t.loc), nil
	}
	parsed, err := ParseIn(value, t.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", name, err)
	}
	return parsed, nil
}
