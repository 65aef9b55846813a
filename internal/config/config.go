package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"schedule-service/internal/schedule"
)

// Gateway kinds.
const (
	GatewayHTTP     = "http"
	GatewayPostgres = "postgres"
	GatewayCalendar = "calendar"
)

// Config holds all configuration values.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Gateway GatewayConfig `mapstructure:"gateway"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Otel    OtelConfig    `mapstructure:"otel"`
}

type AppConfig struct {
	Host              string   `mapstructure:"host"`
	Port              int      `mapstructure:"port"`
	Prefix            string   `mapstructure:"prefix"`
	Debug             bool     `mapstructure:"debug"`
	Env               string   `mapstructure:"env"`
	LogLevel          string   `mapstructure:"log_level"`
	MaxRequestsPerMin int      `mapstructure:"max_requests_per_min"`
	CORSOrigins       []string `mapstructure:"cors_origins"`
	TrustedProxies    []string `mapstructure:"trusted_proxies"`
}

// Addr is the listen address of the HTTP server.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type AuthConfig struct {
	StaticTokens []string `mapstructure:"static_tokens"`
	JWTSecret    string   `mapstructure:"jwt_secret"`
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.StaticTokens) > 0 || a.JWTSecret != ""
}

type GatewayConfig struct {
	Kind     string         `mapstructure:"kind"`
	HTTP     HTTPGateway    `mapstructure:"http"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

type HTTPGateway struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PostgresConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
}

type CalendarConfig struct {
	CalendarID   string   `mapstructure:"calendar_id"`
	TokenFile    string   `mapstructure:"token_file"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	WorkdayStart string   `mapstructure:"workday_start"`
	WorkdayEnd   string   `mapstructure:"workday_end"`
	HorizonDays  int      `mapstructure:"horizon_days"`
	Weekdays     []string `mapstructure:"weekdays"`
	Timezone     string   `mapstructure:"timezone"`
}

// WeekdayList parses Weekdays ("mon", "Tuesday", ...).
func (c CalendarConfig) WeekdayList() ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(c.Weekdays))
	for _, name := range c.Weekdays {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		out = append(out, wd)
	}
	return out, nil
}

// Location loads Timezone, defaulting to the local zone.
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type OtelConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8000)
	v.SetDefault("app.prefix", "/api")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.max_requests_per_min", 600)
	v.SetDefault("app.cors_origins", []string{"*"})
	v.SetDefault("app.trusted_proxies", []string{})

	v.SetDefault("auth.static_tokens", []string{})
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("gateway.kind", GatewayHTTP)
	v.SetDefault("gateway.http.host", "localhost")
	v.SetDefault("gateway.http.port", 8080)
	v.SetDefault("gateway.http.path", "/test-task/")
	v.SetDefault("gateway.http.timeout", 10*time.Second)
	v.SetDefault("gateway.postgres.database_url", "")
	v.SetDefault("gateway.calendar.calendar_id", "primary")
	v.SetDefault("gateway.calendar.token_file", "token.json")
	v.SetDefault("gateway.calendar.client_id", "")
	v.SetDefault("gateway.calendar.client_secret", "")
	v.SetDefault("gateway.calendar.workday_start", "09:00")
	v.SetDefault("gateway.calendar.workday_end", "18:00")
	v.SetDefault("gateway.calendar.horizon_days", 14)
	v.SetDefault("gateway.calendar.weekdays", []string{"mon", "tue", "wed", "thu", "fri"})
	v.SetDefault("gateway.calendar.timezone", "")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 30*time.Second)

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "localhost:4317")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.service_name", "schedule-service")
}

// Load reads config.yaml from path, or from "." and "./config" when path is
// empty. A missing file is not an error; environment variables such as
// GATEWAY_HTTP_HOST override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	if c.App.MaxRequestsPerMin < 0 {
		return fmt.Errorf("app.max_requests_per_min must not be negative")
	}
	if c.App.Prefix != "" && !strings.HasPrefix(c.App.Prefix, "/") {
		return fmt.Errorf("app.prefix must start with '/': %q", c.App.Prefix)
	}
	for _, p := range c.App.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("app.trusted_proxies: %q is neither an IP nor a CIDR", p)
			}
		}
	}

	switch c.Gateway.Kind {
	case GatewayHTTP:
		if strings.TrimSpace(c.Gateway.HTTP.Host) == "" {
			return errors.New("gateway.http.host is required")
		}
		if c.Gateway.HTTP.Port < 0 || c.Gateway.HTTP.Port > 65535 {
			return fmt.Errorf("gateway.http.port out of range: %d", c.Gateway.HTTP.Port)
		}
	case GatewayPostgres:
		if c.Gateway.Postgres.DatabaseURL == "" {
			return errors.New("gateway.postgres.database_url is required")
		}
	case GatewayCalendar:
		cal := c.Gateway.Calendar
		if _, err := schedule.ParseTimeInterval(cal.WorkdayStart, cal.WorkdayEnd); err != nil {
			return fmt.Errorf("gateway.calendar workday: %w", err)
		}
		if _, err := cal.WeekdayList(); err != nil {
			return fmt.Errorf("gateway.calendar.weekdays: %w", err)
		}
		if _, err := cal.Location(); err != nil {
			return fmt.Errorf("gateway.calendar.timezone: %w", err)
		}
	default:
		return fmt.Errorf("unknown gateway.kind %q", c.Gateway.Kind)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive when the cache is enabled")
	}
	if c.Otel.SampleRatio < 0 || c.Otel.SampleRatio > 1 {
		return fmt.Errorf("otel.sample_ratio must be within [0, 1]: %v", c.Otel.SampleRatio)
	}
	return nil
}
