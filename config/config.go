// Package config loads server and tool configuration from YAML, .env and
// environment variables.
package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/staff-hours/generic"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Cycle     CycleConfig     `yaml:"cycle"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig selects the store. Driver is sqlite3 or postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DATABASE_DRIVER" env-default:"sqlite3"`
	DSN    string `yaml:"dsn"    env:"DATABASE_DSN"    env-default:"staff-hours.db"`
}

// AuthConfig holds bearer-token settings. Tokens are issued by the
// external identity provider and signed with HS256.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-default:"development-secret-change-me-in-production"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"staff-hours"`
}

// CycleConfig anchors the pay calendar. Every process must use the same
// reference date or cycle boundaries disagree.
type CycleConfig struct {
	ReferenceDate    string        `yaml:"reference_date"    env:"CYCLE_REFERENCE_DATE"    env-default:"2025-03-03"`
	VisibilityWindow time.Duration `yaml:"visibility_window" env:"CYCLE_VISIBILITY_WINDOW" env-default:"24h"`
	HourlyRate       string        `yaml:"hourly_rate"       env:"CYCLE_HOURLY_RATE"       env-default:"0"`

	reference generic.TimePoint
	rate      decimal.Decimal
}

// Reference returns the parsed reference date. Valid after Validate.
func (c CycleConfig) Reference() generic.TimePoint { return c.reference }

// Rate returns the parsed hourly rate. Valid after Validate.
func (c CycleConfig) Rate() decimal.Decimal { return c.rate }

// Calendar builds the pay calendar from the reference date.
func (c CycleConfig) Calendar() generic.PayCalendar { return generic.NewPayCalendar(c.reference) }

// SchedulerConfig holds cron specs for background jobs.
type SchedulerConfig struct {
	Enabled       bool   `yaml:"enabled"        env:"SCHEDULER_ENABLED"        env-default:"true"`
	BoundarySpec  string `yaml:"boundary_spec"  env:"SCHEDULER_BOUNDARY_SPEC"  env-default:"5 0 * * *"`
	ReconcileSpec string `yaml:"reconcile_spec" env:"SCHEDULER_RECONCILE_SPEC" env-default:"30 2 * * *"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `yaml:"level"       env:"LOG_LEVEL"   env-default:"info"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	MaxAge         int    `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"300"`
}
