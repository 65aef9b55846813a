package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"schedule-service/internal/schedule"
)

const lastMinute = 23*60 + 59

// CalendarConfig describes a Google Calendar used as the busy-time source.
// Working hours are not stored in the calendar, so they come from here.
type CalendarConfig struct {
	CalendarID   string
	TokenFile    string
	ClientID     string
	ClientSecret string
	WorkdayStart string
	WorkdayEnd   string
	HorizonDays  int
	Weekdays     []time.Weekday
	Location     *time.Location
}

// Calendar answers gateway queries from a calendar's free/busy data.
type Calendar struct {
	service    *calendar.Service
	calendarID string
	hours      schedule.TimeInterval
	weekdays   map[time.Weekday]bool
	horizon    int
	loc        *time.Location
	now        func() time.Time
}

// NewCalendarService builds a read-only Calendar API client from the OAuth2
// client credentials and a token previously stored as JSON in TokenFile.
func NewCalendarService(ctx context.Context, cfg CalendarConfig) (*calendar.Service, error) {
	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("invalid calendar token format: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes: []string{
			calendar.CalendarReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
	client := conf.Client(ctx, &token)
	client.Transport = otelhttp.NewTransport(client.Transport)

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, nil
}

func NewCalendar(service *calendar.Service, cfg CalendarConfig) (*Calendar, error) {
	hours, err := schedule.ParseTimeInterval(cfg.WorkdayStart, cfg.WorkdayEnd)
	if err != nil {
		return nil, fmt.Errorf("calendar working hours: %w", err)
	}
	weekdays := cfg.Weekdays
	if len(weekdays) == 0 {
		weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	set := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		set[wd] = true
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 14
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{
		service:    service,
		calendarID: calendarID,
		hours:      hours,
		weekdays:   set,
		horizon:    horizon,
		loc:        loc,
		now:        time.Now,
	}, nil
}

func (c *Calendar) String() string { return "calendar " + c.calendarID }

func (c *Calendar) BusySlots(ctx context.Context, day civil.Date) ([]schedule.TimeInterval, error) {
	if !c.isWorkday(day) {
		return nil, fmt.Errorf("no such day in schedule %s: %w", day, schedule.ErrNotFound)
	}

	dayStart := day.In(c.loc)
	dayEnd := day.AddDays(1).In(c.loc)
	req := &calendar.FreeBusyRequest{
		TimeMin:  dayStart.Format(time.RFC3339),
		TimeMax:  dayEnd.Format(time.RFC3339),
		TimeZone: c.loc.String(),
		Items:    []*calendar.FreeBusyRequestItem{{Id: c.calendarID}},
	}
	resp, err := c.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, c.classify(err)
	}

	cal, ok := resp.Calendars[c.calendarID]
	if !ok {
		return nil, fmt.Errorf("%s: calendar missing from response: %w", c, schedule.ErrNotFound)
	}
	for _, e := range cal.Errors {
		if e.Reason == "notFound" {
			return nil, fmt.Errorf("%s: %s: %w", c, e.Reason, schedule.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %s: %w", c, e.Reason, schedule.ErrConnection)
	}

	out := []schedule.TimeInterval{}
	for _, period := range cal.Busy {
		interval, ok, err := c.clip(period, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("%s: busy period on %s: %v: %w", c, day, err, schedule.ErrNotFound)
		}
		if ok {
			out = append(out, interval)
		}
	}
	return out, nil
}

func (c *Calendar) WorkingHours(_ context.Context, day civil.Date) (schedule.TimeInterval, error) {
	if !c.isWorkday(day) {
		return schedule.TimeInterval{}, fmt.Errorf("no work hours found for date %s: %w", day, schedule.ErrNotFound)
	}
	return c.hours, nil
}

// AvailableDays lists the working weekdays from today over the horizon.
func (c *Calendar) AvailableDays(context.Context) ([]civil.Date, error) {
	today := civil.DateOf(c.now().In(c.loc))
	var out []civil.Date
	for i := range c.horizon {
		d := today.AddDays(i)
		if c.isWorkday(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Ready checks that the calendar can be read.
func (c *Calendar) Ready(ctx context.Context) error {
	_, err := c.service.Calendars.Get(c.calendarID).Context(ctx).Do()
	if err != nil {
		return c.classify(err)
	}
	return nil
}

func (c *Calendar) isWorkday(day civil.Date) bool {
	return c.weekdays[day.In(time.UTC).Weekday()]
}

// clip maps a busy period onto the day. The start is floored and the end
// ceiled to the minute; periods running past midnight end at 23:59.
func (c *Calendar) clip(period *calendar.TimePeriod, dayStart, dayEnd time.Time) (schedule.TimeInterval, bool, error) {
	start, err := time.Parse(time.RFC3339, period.Start)
	if err != nil {
		return schedule.TimeInterval{}, false, err
	}
	end, err := time.Parse(time.RFC3339, period.End)
	if err != nil {
		return schedule.TimeInterval{}, false, err
	}
	if !end.After(dayStart) || !start.Before(dayEnd) {
		return schedule.TimeInterval{}, false, nil
	}
	if start.Before(dayStart) {
		start = dayStart
	}

	start = start.In(c.loc)
	startMin := start.Hour()*60 + start.Minute()
	endMin := lastMinute
	if end.Before(dayEnd) {
		end = end.In(c.loc)
		endMin = end.Hour()*60 + end.Minute()
		if end.Second() != 0 || end.Nanosecond() != 0 {
			endMin++
		}
		endMin = min(endMin, lastMinute)
	}

	from, err := schedule.NewTimeOfDay(startMin/60, startMin%60)
	if err != nil {
		return schedule.TimeInterval{}, false, err
	}
	to, err := schedule.NewTimeOfDay(endMin/60, endMin%60)
	if err != nil {
		return schedule.TimeInterval{}, false, err
	}
	interval, err := schedule.NewTimeInterval(from, to)
	if err != nil {
		return schedule.TimeInterval{}, false, err
	}
	return interval, true, nil
}

func (c *Calendar) classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusNotFound {
			return fmt.Errorf("%s: %v: %w", c, apiErr.Message, schedule.ErrNotFound)
		}
		return fmt.Errorf("%s: status %d: %w", c, apiErr.Code, schedule.ErrConnection)
	}
	return classifyTransportError(c.String(), err)
}
