package app

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"schedule-service/internal/schedule"
)

// GET /schedule/busy_slots?day=YYYY-MM-DD
func (a *App) BusySlotsHandler(c *gin.Context) {
	day, err := queryDay(c, nil)
	if err != nil {
		a.respondError(c, err)
		return
	}
	busy, err := a.Resolver.BusyIntervals(c.Request.Context(), day)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, IntervalDTOs(busy))
}

// GET /schedule/free_slots?day=YYYY-MM-DD
func (a *App) FreeSlotsHandler(c *gin.Context) {
	day, err := queryDay(c, nil)
	if err != nil {
		a.respondError(c, err)
		return
	}
	free, err := a.Resolver.FreeIntervals(c.Request.Context(), day)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, IntervalDTOs(free))
}

// GET /schedule/is_slot_free?day=YYYY-MM-DD&start=HH:MM&end=HH:MM
// Missing parameters default to today, 12:00 and 13:00.
func (a *App) IsSlotFreeHandler(c *gin.Context) {
	today := civil.DateOf(a.now())
	day, err := queryDay(c, &today)
	if err != nil {
		a.respondError(c, err)
		return
	}
	interval, err := queryInterval(c, defaultSlotStart, defaultSlotEnd)
	if err != nil {
		a.respondError(c, err)
		return
	}
	free, err := a.Resolver.IsSlotFree(c.Request.Context(), schedule.TimeSlot{Day: day, Interval: interval})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, free)
}

// GET /schedule/find_free_slot?start=HH:MM&end=HH:MM
func (a *App) FindFreeSlotHandler(c *gin.Context) {
	interval, err := queryInterval(c, "", "")
	if err != nil {
		a.respondError(c, err)
		return
	}
	slot, err := a.Resolver.FindFreeSlot(c.Request.Context(), interval)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SlotDTO(slot))
}

// GET /schedule/first_gap?day=YYYY-MM-DD&minutes=N
func (a *App) FirstGapHandler(c *gin.Context) {
	day, err := queryDay(c, nil)
	if err != nil {
		a.respondError(c, err)
		return
	}
	minutes, err := queryMinutes(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	gap, err := a.Resolver.FirstFreeGap(c.Request.Context(), day, minutes)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, IntervalDTO(gap))
}

// GET /health
func (a *App) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /readyz
func (a *App) ReadyHandler(c *gin.Context) {
	var failures []string
	for _, check := range a.ReadyChecks {
		if check.Check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures = append(failures, name+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{Status: "unavailable", Failures: failures})
		return
	}
	c.JSON(http.StatusOK, ReadyResponse{Status: "ok"})
}
