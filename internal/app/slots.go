package app

import (
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"schedule-service/internal/schedule"
)

// Defaults for /schedule/is_slot_free.
const (
	defaultSlotStart = "12:00"
	defaultSlotEnd   = "13:00"
)

func queryDay(c *gin.Context, fallback *civil.Date) (civil.Date, error) {
	s := c.Query("day")
	if s == "" {
		if fallback != nil {
			return *fallback, nil
		}
		return civil.Date{}, fmt.Errorf("day required (YYYY-MM-DD): %w", schedule.ErrInvalidInterval)
	}
	return schedule.ParseDate(s)
}

func queryTime(c *gin.Context, key, fallback string) (schedule.TimeOfDay, error) {
	s := c.DefaultQuery(key, fallback)
	if s == "" {
		return schedule.TimeOfDay{}, fmt.Errorf("%s required (HH:MM): %w", key, schedule.ErrInvalidInterval)
	}
	t, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		return schedule.TimeOfDay{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return t, nil
}

// queryInterval reads start and end without ordering checks; the resolver
// rejects reversed intervals itself.
func queryInterval(c *gin.Context, start, end string) (schedule.TimeInterval, error) {
	from, err := queryTime(c, "start", start)
	if err != nil {
		return schedule.TimeInterval{}, err
	}
	to, err := queryTime(c, "end", end)
	if err != nil {
		return schedule.TimeInterval{}, err
	}
	return schedule.TimeInterval{Start: from, End: to}, nil
}

func queryMinutes(c *gin.Context) (int, error) {
	s := c.Query("minutes")
	if s == "" {
		return 0, fmt.Errorf("minutes required: %w", schedule.ErrInvalidInterval)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("minutes must be a positive integer: %w", schedule.ErrInvalidInterval)
	}
	return n, nil
}
