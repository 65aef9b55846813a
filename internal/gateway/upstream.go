package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"schedule-service/internal/schedule"
)

const defaultUpstreamPath = "/test-task/"

// UpstreamConfig points the client at the upstream schedule document.
type UpstreamConfig struct {
	Host    string
	Port    int
	Path    string
	Timeout time.Duration
}

// URL renders the document URL, adding an http:// scheme when missing.
func (c UpstreamConfig) URL() string {
	host := strings.TrimRight(c.Host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	if c.Port > 0 {
		host = fmt.Sprintf("%s:%d", host, c.Port)
	}
	path := c.Path
	if path == "" {
		path = defaultUpstreamPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return host + path
}

// Upstream reads the whole schedule document from the upstream HTTP API and
// answers gateway queries from it.
type Upstream struct {
	url      string
	client   *http.Client
	cache    SnapshotCache
	cacheTTL time.Duration
	onCache  func(error)
}

// UpstreamOption configures an Upstream.
type UpstreamOption func(*Upstream)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(client *http.Client) UpstreamOption {
	return func(u *Upstream) { u.client = client }
}

// WithSnapshotCache stores successful upstream documents in cache for ttl.
func WithSnapshotCache(cache SnapshotCache, ttl time.Duration) UpstreamOption {
	return func(u *Upstream) {
		u.cache = cache
		u.cacheTTL = ttl
	}
}

// WithCacheErrorHook receives cache failures, which never fail a request.
func WithCacheErrorHook(hook func(error)) UpstreamOption {
	return func(u *Upstream) { u.onCache = hook }
}

func NewUpstream(cfg UpstreamConfig, opts ...UpstreamOption) *Upstream {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	u := &Upstream{
		url: cfg.URL(),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Upstream) String() string { return "upstream " + u.url }

type upstreamDay struct {
	ID    json.RawMessage `json:"id"`
	Date  string          `json:"date"`
	Start string          `json:"start"`
	End   string          `json:"end"`
}

type upstreamTimeslot struct {
	ID    json.RawMessage `json:"id"`
	DayID json.RawMessage `json:"day_id"`
	Start string          `json:"start"`
	End   string          `json:"end"`
}

type upstreamDocument struct {
	Days      []upstreamDay      `json:"days"`
	Timeslots []upstreamTimeslot `json:"timeslots"`
}

// BusySlots returns the raw timeslots booked on day.
func (u *Upstream) BusySlots(ctx context.Context, day civil.Date) ([]schedule.TimeInterval, error) {
	doc, err := u.document(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := doc.find(day)
	if !ok {
		return nil, fmt.Errorf("no such day in schedule %s: %w", day, schedule.ErrNotFound)
	}

	intervals := []schedule.TimeInterval{}
	for _, ts := range doc.Timeslots {
		if !sameID(ts.DayID, d.ID) {
			continue
		}
		interval, err := parseUpstreamInterval(ts.Start, ts.End)
		if err != nil {
			return nil, fmt.Errorf("timeslot on %s: %v: %w", day, err, schedule.ErrNotFound)
		}
		// Zero-length bookings occupy no time.
		if interval.Minutes() == 0 {
			continue
		}
		intervals = append(intervals, interval)
	}
	return intervals, nil
}

// WorkingHours returns the start and end of the working day.
func (u *Upstream) WorkingHours(ctx context.Context, day civil.Date) (schedule.TimeInterval, error) {
	doc, err := u.document(ctx)
	if err != nil {
		return schedule.TimeInterval{}, err
	}
	d, ok := doc.find(day)
	if !ok {
		return schedule.TimeInterval{}, fmt.Errorf("no work hours found for date %s: %w", day, schedule.ErrNotFound)
	}
	interval, err := parseUpstreamInterval(d.Start, d.End)
	if err != nil {
		return schedule.TimeInterval{}, fmt.Errorf("work hours on %s: %v: %w", day, err, schedule.ErrNotFound)
	}
	return interval, nil
}

// AvailableDays returns the distinct days of the document, ascending.
func (u *Upstream) AvailableDays(ctx context.Context) ([]civil.Date, error) {
	doc, err := u.document(ctx)
	if err != nil {
		return nil, err
	}
	days := make([]civil.Date, 0, len(doc.Days))
	for _, d := range doc.Days {
		date, err := civil.ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("day %q: %v: %w", d.Date, err, schedule.ErrNotFound)
		}
		days = append(days, date)
	}
	slices.SortFunc(days, compareDates)
	return slices.Compact(days), nil
}

// Ready fetches the document once.
func (u *Upstream) Ready(ctx context.Context) error {
	_, err := u.fetch(ctx)
	return err
}

func (d *upstreamDocument) find(day civil.Date) (upstreamDay, bool) {
	want := day.String()
	for _, candidate := range d.Days {
		if candidate.Date == want {
			return candidate, true
		}
	}
	return upstreamDay{}, false
}

// document returns the parsed schedule, from the snapshot cache when one is
// configured. Only bodies that parse are written back to the cache.
func (u *Upstream) document(ctx context.Context) (*upstreamDocument, error) {
	if u.cache == nil {
		body, err := u.fetch(ctx)
		if err != nil {
			return nil, err
		}
		return u.parse(body)
	}

	key := snapshotKeyPrefix + u.url
	body, err := u.cache.Get(ctx, key)
	switch {
	case err == nil:
		if doc, perr := u.parse(body); perr == nil {
			return doc, nil
		}
	case !errors.Is(err, ErrCacheMiss):
		u.cacheFailed(err)
	}

	body, err = u.fetch(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := u.parse(body)
	if err != nil {
		return nil, err
	}
	if err := u.cache.Set(ctx, key, body, u.cacheTTL); err != nil {
		u.cacheFailed(err)
	}
	return doc, nil
}

func (u *Upstream) parse(body []byte) (*upstreamDocument, error) {
	var doc upstreamDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%s: undecodable schedule document: %v: %w", u, err, schedule.ErrNotFound)
	}
	if doc.Days == nil {
		return nil, fmt.Errorf("%s: no data available: %w", u, schedule.ErrNotFound)
	}
	return &doc, nil
}

func (u *Upstream) cacheFailed(err error) {
	if u.onCache != nil {
		u.onCache(err)
	}
}

func (u *Upstream) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %v: %w", u, err, schedule.ErrConnection)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(u.String(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNoContent:
		return nil, fmt.Errorf("%s: status %d: %w", u, resp.StatusCode, schedule.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s: status %d: %w", u, resp.StatusCode, schedule.ErrConnection)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(u.String(), err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, fmt.Errorf("%s: empty response: %w", u, schedule.ErrNotFound)
	}
	return body, nil
}

// classifyTransportError maps client failures onto the timeout and
// connection sentinels. Caller cancellation is returned as is.
func classifyTransportError(source string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("timeout expired on %s request: %w", source, schedule.ErrTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("timeout expired on %s request: %w", source, schedule.ErrTimeout)
	}
	return fmt.Errorf("error on connection by %s: %v: %w", source, err, schedule.ErrConnection)
}

// parseUpstreamInterval accepts "HH:MM" and "HH:MM:SS" values.
func parseUpstreamInterval(start, end string) (schedule.TimeInterval, error) {
	return schedule.ParseTimeInterval(trimSeconds(start), trimSeconds(end))
}

func trimSeconds(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		return s[:5]
	}
	return s
}

// sameID compares JSON ids so that 3 and "3" match.
func sameID(a, b json.RawMessage) bool {
	x, y := strings.Trim(string(a), `" `), strings.Trim(string(b), `" `)
	return x != "" && x != "null" && x == y
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
