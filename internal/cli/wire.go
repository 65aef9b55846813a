package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"schedule-service/internal/app"
	"schedule-service/internal/config"
	"schedule-service/internal/gateway"
	"schedule-service/internal/logging"
	"schedule-service/internal/schedule"
)

// deps is everything a command needs, built from the configuration.
type deps struct {
	cfg      *config.Config
	logger   *zap.Logger
	resolver *schedule.Resolver
	ready    []app.ReadyCheck
	closers  []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	_ = d.logger.Sync()
}

type readier interface {
	Ready(ctx context.Context) error
}

func setup(ctx context.Context, opts *globalOptions) (*deps, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.debug {
		cfg.App.Debug = true
		cfg.App.LogLevel = "debug"
	}

	logger, err := logging.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, logger: logger}
	gw, err := d.buildGateway(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}
	if r, ok := gw.(readier); ok {
		d.ready = append(d.ready, app.ReadyCheck{Name: cfg.Gateway.Kind, Check: r.Ready})
	}
	d.resolver = schedule.NewResolver(gw)
	return d, nil
}

func (d *deps) buildGateway(ctx context.Context) (schedule.Gateway, error) {
	cfg := d.cfg
	switch cfg.Gateway.Kind {
	case config.GatewayHTTP:
		return d.buildUpstream(ctx), nil

	case config.GatewayPostgres:
		pool, err := gateway.OpenPostgres(ctx, cfg.Gateway.Postgres.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		return gateway.NewPostgres(pool), nil

	case config.GatewayCalendar:
		c := cfg.Gateway.Calendar
		weekdays, err := c.WeekdayList()
		if err != nil {
			return nil, err
		}
		loc, err := c.Location()
		if err != nil {
			return nil, err
		}
		calCfg := gateway.CalendarConfig{
			CalendarID:   c.CalendarID,
			TokenFile:    c.TokenFile,
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			WorkdayStart: c.WorkdayStart,
			WorkdayEnd:   c.WorkdayEnd,
			HorizonDays:  c.HorizonDays,
			Weekdays:     weekdays,
			Location:     loc,
		}
		srv, err := gateway.NewCalendarService(ctx, calCfg)
		if err != nil {
			return nil, err
		}
		cal, err := gateway.NewCalendar(srv, calCfg)
		if err != nil {
			return nil, err
		}
		return cal, nil
	}
	return nil, fmt.Errorf("unknown gateway kind %q", cfg.Gateway.Kind)
}

// buildUpstream wires the HTTP source, fronted by Redis when the cache is
// enabled and reachable.
func (d *deps) buildUpstream(ctx context.Context) *gateway.Upstream {
	cfg := d.cfg
	upstreamCfg := gateway.UpstreamConfig{
		Host:    cfg.Gateway.HTTP.Host,
		Port:    cfg.Gateway.HTTP.Port,
		Path:    cfg.Gateway.HTTP.Path,
		Timeout: cfg.Gateway.HTTP.Timeout,
	}

	var opts []gateway.UpstreamOption
	if cfg.Cache.Enabled {
		client, err := gateway.OpenRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			d.logger.Warn("snapshot cache unavailable, reading upstream directly",
				zap.String("addr", cfg.Cache.RedisAddr), zap.Error(err))
		} else {
			cache := gateway.NewRedisSnapshotCache(client)
			opts = append(opts,
				gateway.WithSnapshotCache(cache, cfg.Cache.TTL),
				gateway.WithCacheErrorHook(func(err error) {
					d.logger.Warn("snapshot cache failure", zap.Error(err))
				}),
			)
			d.ready = append(d.ready, app.ReadyCheck{Name: "redis", Check: cache.Ready})
			d.closers = append(d.closers, func() { _ = client.Close() })
		}
	}

	u := gateway.NewUpstream(upstreamCfg, opts...)
	d.logger.Info("using upstream schedule", zap.String("url", upstreamCfg.URL()))
	return u
}
