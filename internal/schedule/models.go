package schedule

import (
	"fmt"
	"regexp"
	"strconv"

	"cloud.google.com/go/civil"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// TimeOfDay is a wall-clock time with minute precision, no date or zone.
type TimeOfDay struct {
	minutes int
}

// NewTimeOfDay builds a TimeOfDay from hour 0-23 and minute 0-59.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time %02d:%02d out of range: %w", hour, minute, ErrInvalidInterval)
	}
	return TimeOfDay{minutes: hour*60 + minute}, nil
}

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if !hhmmPattern.MatchString(s) {
		return TimeOfDay{}, fmt.Errorf("invalid time %q, use HH:MM: %w", s, ErrInvalidInterval)
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	return NewTimeOfDay(hour, minute)
}

func (t TimeOfDay) Hour() int   { return t.minutes / 60 }
func (t TimeOfDay) Minute() int { return t.minutes % 60 }

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.minutes }

func (t TimeOfDay) Before(u TimeOfDay) bool { return t.minutes < u.minutes }
func (t TimeOfDay) After(u TimeOfDay) bool  { return t.minutes > u.minutes }

// Compare returns -1, 0 or +1 ordering t against u.
func (t TimeOfDay) Compare(u TimeOfDay) int {
	switch {
	case t.minutes < u.minutes:
		return -1
	case t.minutes > u.minutes:
		return 1
	}
	return 0
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeInterval is a [Start, End) range within one day.
type TimeInterval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewTimeInterval rejects intervals whose start is after their end.
func NewTimeInterval(start, end TimeOfDay) (TimeInterval, error) {
	if start.After(end) {
		return TimeInterval{}, fmt.Errorf("start %s is after end %s: %w", start, end, ErrInvalidInterval)
	}
	return TimeInterval{Start: start, End: end}, nil
}

// ParseTimeInterval parses two "HH:MM" strings into an interval.
func ParseTimeInterval(start, end string) (TimeInterval, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return TimeInterval{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return TimeInterval{}, err
	}
	return NewTimeInterval(s, e)
}

// Minutes is the length of the interval.
func (i TimeInterval) Minutes() int { return i.End.minutes - i.Start.minutes }

func (i TimeInterval) String() string {
	return "(" + i.Start.String() + ", " + i.End.String() + ")"
}

// TimeSlot is a candidate interval on a specific calendar day.
type TimeSlot struct {
	Day      civil.Date   `json:"day"`
	Interval TimeInterval `json:"interval"`
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", s, ErrInvalidInterval)
	}
	return d, nil
}
