package schedule

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
)

// Gateway supplies raw schedule data for a day. Implementations report
// failures by wrapping ErrNotFound, ErrConnection or ErrTimeout.
type Gateway interface {
	// BusySlots returns the raw, possibly overlapping busy intervals of day.
	BusySlots(ctx context.Context, day civil.Date) ([]TimeInterval, error)
	// WorkingHours returns the working-hours bounds of day.
	WorkingHours(ctx context.Context, day civil.Date) (TimeInterval, error)
	// AvailableDays lists the days with schedule data in ascending order.
	AvailableDays(ctx context.Context) ([]civil.Date, error)
}

// Resolver answers busy/free questions by combining gateway data with the
// interval algebra. It keeps no state between calls.
type Resolver struct {
	gateway Gateway
}

func NewResolver(gateway Gateway) *Resolver {
	return &Resolver{gateway: gateway}
}

// BusyIntervals returns the merged busy intervals of day.
func (r *Resolver) BusyIntervals(ctx context.Context, day civil.Date) ([]TimeInterval, error) {
	slots, err := r.gateway.BusySlots(ctx, day)
	if err != nil {
		return nil, err
	}
	return MergeIntervals(slots), nil
}

// FreeIntervals returns the gaps between busy intervals within the working
// hours of day.
func (r *Resolver) FreeIntervals(ctx context.Context, day civil.Date) ([]TimeInterval, error) {
	busy, err := r.BusyIntervals(ctx, day)
	if err != nil {
		return nil, err
	}
	bounds, err := r.gateway.WorkingHours(ctx, day)
	if err != nil {
		return nil, err
	}
	return GapsInIntervals(busy, bounds), nil
}

// IsSlotFree reports whether slot fits entirely inside one free interval of
// its day.
func (r *Resolver) IsSlotFree(ctx context.Context, slot TimeSlot) (bool, error) {
	if slot.Interval.Start.After(slot.Interval.End) {
		return false, fmt.Errorf("slot %s: %w", slot.Interval, ErrInvalidInterval)
	}
	free, err := r.FreeIntervals(ctx, slot.Day)
	if err != nil {
		return false, err
	}
	return IntervalContainsInterval(slot.Interval, free), nil
}

// FindFreeSlot scans the available days in order and returns the first day
// on which wanted is free. Days after the first match are never queried.
func (r *Resolver) FindFreeSlot(ctx context.Context, wanted TimeInterval) (TimeSlot, error) {
	if wanted.Start.After(wanted.End) {
		return TimeSlot{}, fmt.Errorf("interval %s: %w", wanted, ErrInvalidInterval)
	}
	days, err := r.gateway.AvailableDays(ctx)
	if err != nil {
		return TimeSlot{}, err
	}
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return TimeSlot{}, err
		}
		free, err := r.FreeIntervals(ctx, day)
		if err != nil {
			return TimeSlot{}, err
		}
		if IntervalContainsInterval(wanted, free) {
			return TimeSlot{Day: day, Interval: wanted}, nil
		}
	}
	return TimeSlot{}, fmt.Errorf("no free time interval %s on any available day: %w", wanted, ErrNotFound)
}

// FirstFreeGap returns the earliest free interval of day lasting at least
// minutes.
func (r *Resolver) FirstFreeGap(ctx context.Context, day civil.Date, minutes int) (TimeInterval, error) {
	if minutes <= 0 {
		return TimeInterval{}, fmt.Errorf("duration %d minutes must be positive: %w", minutes, ErrInvalidInterval)
	}
	free, err := r.FreeIntervals(ctx, day)
	if err != nil {
		return TimeInterval{}, err
	}
	gap, ok := FirstGap(free, minutes)
	if !ok {
		return TimeInterval{}, fmt.Errorf("no free gap of %d minutes on %s: %w", minutes, day, ErrNotFound)
	}
	return gap, nil
}
