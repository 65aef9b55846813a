package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"schedule-service/internal/schedule"
)

// querier is the subset of *pgxpool.Pool the source needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads days and timeslots from a read-only schedule database:
//
//	days(id, date, start_time, end_time)
//	timeslots(id, day_id, start_time, end_time)
type Postgres struct {
	db   querier
	ping func(context.Context) error
}

// OpenPostgres creates a small pool and pings it.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, ping: pool.Ping}
}

func (p *Postgres) String() string { return "postgres" }

func (p *Postgres) BusySlots(ctx context.Context, day civil.Date) ([]schedule.TimeInterval, error) {
	var dayID int64
	q := `SELECT id FROM days WHERE date=$1::date LIMIT 1`
	if err := p.db.QueryRow(ctx, q, day.String()).Scan(&dayID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no such day in schedule %s: %w", day, schedule.ErrNotFound)
		}
		return nil, classifyDBError("busy slots", err)
	}

	q = `SELECT to_char(start_time,'HH24:MI'), to_char(end_time,'HH24:MI')
	     FROM timeslots WHERE day_id=$1 ORDER BY id`
	rows, err := p.db.Query(ctx, q, dayID)
	if err != nil {
		return nil, classifyDBError("busy slots", err)
	}
	defer rows.Close()

	out := []schedule.TimeInterval{}
	for rows.Next() {
		var start, end string
		if err := rows.Scan(&start, &end); err != nil {
			return nil, classifyDBError("busy slots", err)
		}
		interval, err := schedule.ParseTimeInterval(start, end)
		if err != nil {
			return nil, fmt.Errorf("timeslot on %s: %v: %w", day, err, schedule.ErrNotFound)
		}
		if interval.Minutes() == 0 {
			continue
		}
		out = append(out, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError("busy slots", err)
	}
	return out, nil
}

func (p *Postgres) WorkingHours(ctx context.Context, day civil.Date) (schedule.TimeInterval, error) {
	var start, end string
	q := `SELECT to_char(start_time,'HH24:MI'), to_char(end_time,'HH24:MI')
	      FROM days WHERE date=$1::date LIMIT 1`
	err := p.db.QueryRow(ctx, q, day.String()).Scan(&start, &end)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.TimeInterval{}, fmt.Errorf("no work hours found for date %s: %w", day, schedule.ErrNotFound)
	}
	if err != nil {
		return schedule.TimeInterval{}, classifyDBError("work hours", err)
	}
	interval, err := schedule.ParseTimeInterval(start, end)
	if err != nil {
		return schedule.TimeInterval{}, fmt.Errorf("work hours on %s: %v: %w", day, err, schedule.ErrNotFound)
	}
	return interval, nil
}

func (p *Postgres) AvailableDays(ctx context.Context) ([]civil.Date, error) {
	q := `SELECT DISTINCT to_char(date,'YYYY-MM-DD') FROM days ORDER BY 1`
	rows, err := p.db.Query(ctx, q)
	if err != nil {
		return nil, classifyDBError("available days", err)
	}
	defer rows.Close()

	var out []civil.Date
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, classifyDBError("available days", err)
		}
		d, err := civil.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("day %q: %v: %w", s, err, schedule.ErrNotFound)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError("available days", err)
	}
	return out, nil
}

// Ready pings the pool.
func (p *Postgres) Ready(ctx context.Context) error {
	if p.ping == nil {
		return errors.New("db not configured")
	}
	return p.ping(ctx)
}

func classifyDBError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return fmt.Errorf("timeout expired on postgres %s query: %w", op, schedule.ErrTimeout)
	}
	return fmt.Errorf("postgres %s: %v: %w", op, err, schedule.ErrConnection)
}
