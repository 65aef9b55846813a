package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"schedule-service/internal/schedule"
)

const scheduleDocument = `{
  "days": [
    {"id": 2, "date": "2024-10-11", "start": "08:00", "end": "17:00"},
    {"id": 1, "date": "2024-10-10", "start": "09:00:00", "end": "18:00:00"}
  ],
  "timeslots": [
    {"id": 1, "day_id": 1, "start": "11:00", "end": "12:00"},
    {"id": 2, "day_id": 1, "start": "09:30", "end": "10:30"},
    {"id": 3, "day_id": 2, "start": "13:00", "end": "14:00"},
    {"id": 4, "day_id": "2", "start": "15:00:00", "end": "15:30:00"}
  ]
}`

func must(t *testing.T, s string) schedule.TimeInterval {
	t.Helper()
	if len(s) != 11 {
		t.Fatalf("bad interval literal %q", s)
	}
	interval, err := schedule.ParseTimeInterval(s[:5], s[6:])
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return interval
}

func newDocumentServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/test-task/" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("accept header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestUpstream(srv *httptest.Server, opts ...UpstreamOption) *Upstream {
	opts = append([]UpstreamOption{WithHTTPClient(srv.Client())}, opts...)
	return NewUpstream(UpstreamConfig{Host: srv.URL}, opts...)
}

var (
	oct10 = civil.Date{Year: 2024, Month: 10, Day: 10}
	oct11 = civil.Date{Year: 2024, Month: 10, Day: 11}
)

func TestUpstreamConfigURL(t *testing.T) {
	cases := []struct {
		cfg  UpstreamConfig
		want string
	}{
		{UpstreamConfig{Host: "schedule", Port: 8000}, "http://schedule:8000/test-task/"},
		{UpstreamConfig{Host: "https://api.example.com/", Path: "v1/days"}, "https://api.example.com/v1/days"},
		{UpstreamConfig{Host: "http://localhost", Port: 80, Path: "/x"}, "http://localhost:80/x"},
	}
	for _, tc := range cases {
		if got := tc.cfg.URL(); got != tc.want {
			t.Errorf("URL(%+v) = %q, want %q", tc.cfg, got, tc.want)
		}
	}
}

func TestUpstreamBusySlots(t *testing.T) {
	srv, _ := newDocumentServer(t, http.StatusOK, scheduleDocument)
	u := newTestUpstream(srv)

	got, err := u.BusySlots(context.Background(), oct10)
	if err != nil {
		t.Fatalf("BusySlots: %v", err)
	}
	want := []schedule.TimeInterval{must(t, "11:00-12:00"), must(t, "09:30-10:30")}
	if !slices.Equal(got, want) {
		t.Fatalf("BusySlots = %v, want %v", got, want)
	}

	got, err = u.BusySlots(context.Background(), oct11)
	if err != nil {
		t.Fatalf("BusySlots: %v", err)
	}
	want = []schedule.TimeInterval{must(t, "13:00-14:00"), must(t, "15:00-15:30")}
	if !slices.Equal(got, want) {
		t.Fatalf("BusySlots = %v, want %v", got, want)
	}
}

func TestUpstreamUnknownDay(t *testing.T) {
	srv, _ := newDocumentServer(t, http.StatusOK, scheduleDocument)
	u := newTestUpstream(srv)
	unknown := civil.Date{Year: 2030, Month: 1, Day: 1}

	if _, err := u.BusySlots(context.Background(), unknown); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("BusySlots error = %v, want ErrNotFound", err)
	}
	if _, err := u.WorkingHours(context.Background(), unknown); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("WorkingHours error = %v, want ErrNotFound", err)
	}
}

func TestUpstreamWorkingHours(t *testing.T) {
	srv, _ := newDocumentServer(t, http.StatusOK, scheduleDocument)
	u := newTestUpstream(srv)

	got, err := u.WorkingHours(context.Background(), oct10)
	if err != nil {
		t.Fatalf("WorkingHours: %v", err)
	}
	if got != must(t, "09:00-18:00") {
		t.Fatalf("WorkingHours = %v", got)
	}
}

func TestUpstreamAvailableDaysSortedAndUnique(t *testing.T) {
	doc := `{"days": [
		{"id": 3, "date": "2024-10-12", "start": "09:00", "end": "18:00"},
		{"id": 1, "date": "2024-10-10", "start": "09:00", "end": "18:00"},
		{"id": 4, "date": "2024-10-12", "start": "09:00", "end": "18:00"}
	], "timeslots": []}`
	srv, _ := newDocumentServer(t, http.StatusOK, doc)

	got, err := newTestUpstream(srv).AvailableDays(context.Background())
	if err != nil {
		t.Fatalf("AvailableDays: %v", err)
	}
	want := []civil.Date{oct10, {Year: 2024, Month: 10, Day: 12}}
	if !slices.Equal(got, want) {
		t.Fatalf("AvailableDays = %v, want %v", got, want)
	}
}

func TestUpstreamErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, "", schedule.ErrNotFound},
		{"no content", http.StatusNoContent, "", schedule.ErrNotFound},
		{"empty body", http.StatusOK, "  ", schedule.ErrNotFound},
		{"missing days", http.StatusOK, `{"timeslots": []}`, schedule.ErrNotFound},
		{"not json", http.StatusOK, `<html>`, schedule.ErrNotFound},
		{"bad time", http.StatusOK, `{"days":[{"id":1,"date":"2024-10-10","start":"9am","end":"18:00"}]}`, schedule.ErrNotFound},
		{"server error", http.StatusBadGateway, "boom", schedule.ErrConnection},
		{"forbidden", http.StatusForbidden, "no", schedule.ErrConnection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newDocumentServer(t, tc.status, tc.body)
			_, err := newTestUpstream(srv).WorkingHours(context.Background(), oct10)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUpstreamTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	u := NewUpstream(UpstreamConfig{Host: srv.URL, Timeout: 30 * time.Millisecond})
	_, err := u.AvailableDays(context.Background())
	if !errors.Is(err, schedule.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
}

func TestUpstreamConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewUpstream(UpstreamConfig{Host: addr}).AvailableDays(context.Background())
	if !errors.Is(err, schedule.ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}
}

func TestUpstreamCallerCancellation(t *testing.T) {
	srv, _ := newDocumentServer(t, http.StatusOK, scheduleDocument)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestUpstream(srv).AvailableDays(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

type memoryCache struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	gets    int
	setKeys []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.setKeys = append(m.setKeys, key)
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func TestUpstreamSnapshotCache(t *testing.T) {
	srv, hits := newDocumentServer(t, http.StatusOK, scheduleDocument)
	cache := newMemoryCache()
	u := newTestUpstream(srv, WithSnapshotCache(cache, time.Minute))

	for range 3 {
		if _, err := u.BusySlots(context.Background(), oct10); err != nil {
			t.Fatalf("BusySlots: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits.Load())
	}
	key := snapshotKeyPrefix + srv.URL + "/test-task/"
	if cache.ttls[key] != time.Minute {
		t.Fatalf("cached under %v with ttl %v", cache.setKeys, cache.ttls[key])
	}
}

func TestUpstreamSnapshotCacheFailuresFallBack(t *testing.T) {
	srv, hits := newDocumentServer(t, http.StatusOK, scheduleDocument)
	cache := newMemoryCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")

	var reported []error
	u := newTestUpstream(srv,
		WithSnapshotCache(cache, time.Minute),
		WithCacheErrorHook(func(err error) { reported = append(reported, err) }),
	)

	if _, err := u.WorkingHours(context.Background(), oct10); err != nil {
		t.Fatalf("WorkingHours: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits.Load())
	}
	if len(reported) != 2 {
		t.Fatalf("reported %d cache errors, want 2", len(reported))
	}
}

func TestUpstreamSnapshotCacheSkipsFailures(t *testing.T) {
	srv, _ := newDocumentServer(t, http.StatusInternalServerError, "oops")
	cache := newMemoryCache()
	u := newTestUpstream(srv, WithSnapshotCache(cache, time.Minute))

	if _, err := u.AvailableDays(context.Background()); !errors.Is(err, schedule.ErrConnection) {
		t.Fatalf("error = %v, want ErrConnection", err)
	}
	if len(cache.setKeys) != 0 {
		t.Fatalf("failed response cached under %v", cache.setKeys)
	}
}

func TestUpstreamSnapshotCacheSkipsUndecodableBody(t *testing.T) {
	srv, hits := newDocumentServer(t, http.StatusOK, "<html>maintenance</html>")
	cache := newMemoryCache()
	u := newTestUpstream(srv, WithSnapshotCache(cache, time.Minute))

	for range 3 {
		if _, err := u.AvailableDays(context.Background()); !errors.Is(err, schedule.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	}
	if len(cache.setKeys) != 0 {
		t.Fatalf("undecodable body cached under %v", cache.setKeys)
	}
	if hits.Load() != 3 {
		t.Fatalf("upstream hit %d times, want 3", hits.Load())
	}
}

func TestUpstreamSnapshotCacheReplacesBadEntry(t *testing.T) {
	srv, hits := newDocumentServer(t, http.StatusOK, scheduleDocument)
	cache := newMemoryCache()
	key := snapshotKeyPrefix + srv.URL + "/test-task/"
	cache.data[key] = []byte(`{"days":`)
	u := newTestUpstream(srv, WithSnapshotCache(cache, time.Minute))

	days, err := u.AvailableDays(context.Background())
	if err != nil {
		t.Fatalf("AvailableDays: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %v", days)
	}
	if hits.Load() != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits.Load())
	}
	if string(cache.data[key]) != scheduleDocument {
		t.Fatalf("cache entry not replaced: %q", cache.data[key])
	}
}

func TestUpstreamDropsZeroLengthTimeslots(t *testing.T) {
	const doc = `{
  "days": [{"id": 1, "date": "2024-10-10", "start": "09:00", "end": "18:00"}],
  "timeslots": [{"id": 1, "day_id": 1, "start": "10:00", "end": "10:00"}]
}`
	srv, _ := newDocumentServer(t, http.StatusOK, doc)
	u := newTestUpstream(srv)

	busy, err := u.BusySlots(context.Background(), oct10)
	if err != nil {
		t.Fatalf("BusySlots: %v", err)
	}
	if len(busy) != 0 {
		t.Fatalf("BusySlots = %v, want none", busy)
	}

	free, err := schedule.NewResolver(u).IsSlotFree(context.Background(), schedule.TimeSlot{
		Day:      oct10,
		Interval: must(t, "09:30-10:30"),
	})
	if err != nil {
		t.Fatalf("IsSlotFree: %v", err)
	}
	if !free {
		t.Fatalf("09:30-10:30 reported busy around an empty booking")
	}
}
