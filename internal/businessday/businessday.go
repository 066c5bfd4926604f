package businessday

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	DefaultTimezone = "Asia/Dubai"
	dateLayout      = "2006-01-02"
)

var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

var ErrInvalidTime = errors.New("invalid time of day")

// Date is a calendar day in the business timezone, formatted YYYY-MM-DD.
type Date string

func ParseDate(raw string) (Date, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return "", ErrInvalidDate
	}
	return Date(parsed.Format(dateLayout)), nil
}

func (d Date) String() string {
	return string(d)
}

// Bounds returns the first and last instant of the day in loc. Both ends are
// inclusive.
func (d Date) Bounds(loc *time.Location) (time.Time, time.Time) {
	day, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, time.Time{}
	}
	return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

type Clock struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Clock)

// WithNow replaces the wall clock, mostly for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClock(timezone string, opts ...Option) (*Clock, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}

	clock := &Clock{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(clock)
	}
	return clock, nil
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Clock) Today() Date {
	return c.DateOf(c.now())
}

func (c *Clock) DateOf(t time.Time) Date {
	return Date(t.In(c.loc).Format(dateLayout))
}

// Resolve returns the parsed date, or today when raw is blank.
func (c *Clock) Resolve(raw string) (Date, error) {
	if strings.TrimSpace(raw) == "" {
		return c.Today(), nil
	}
	return ParseDate(raw)
}

var timeOfDayLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
	"3:04:05PM",
	"3 PM",
	"3PM",
}

// ParseTimeOfDay turns a wall-clock string on day d into an absolute
// instant. Accepts 24h ("14:30"), 12h ("2:30 pm") and full RFC 3339
// timestamps, the latter returned unchanged.
func (c *Clock) ParseTimeOfDay(d Date, raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, ErrInvalidTime
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return ts.In(c.loc), nil
	}

	day, err := time.ParseInLocation(dateLayout, string(d), c.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	upper := strings.ToUpper(trimmed)
	for _, layout := range timeOfDayLayouts {
		clock, err := time.Parse(layout, upper)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, c.loc), nil
	}
	return time.Time{}, ErrInvalidTime
}
