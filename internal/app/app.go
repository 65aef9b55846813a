package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"schedule-service/internal/schedule"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Resolver    *schedule.Resolver
	Logger      *zap.Logger
	Debug       bool
	ReadyChecks []ReadyCheck
	Now         func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) logger() *zap.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return zap.NewNop()
}
