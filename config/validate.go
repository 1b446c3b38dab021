package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/warp/staff-hours/generic"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres (got %q)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Cycle.validate(); err != nil {
		return fmt.Errorf("cycle: %w", err)
	}

	if c.Scheduler.Enabled {
		for name, spec := range map[string]string{
			"boundary_spec":  c.Scheduler.BoundarySpec,
			"reconcile_spec": c.Scheduler.ReconcileSpec,
		} {
			if _, err := cron.ParseStandard(spec); err != nil {
				return fmt.Errorf("scheduler.%s %q: %w", name, spec, err)
			}
		}
	}

	return nil
}

func (c *CycleConfig) validate() error {
	ref, err := generic.ParseDate(c.ReferenceDate)
	if err != nil {
		return fmt.Errorf("reference_date %q: %w", c.ReferenceDate, err)
	}
	if err := generic.ValidateReference(ref); err != nil {
		return err
	}
	c.reference = ref

	if c.VisibilityWindow <= 0 {
		return fmt.Errorf("visibility_window must be > 0 (got %v)", c.VisibilityWindow)
	}

	rate, err := decimal.NewFromString(c.HourlyRate)
	if err != nil {
		return fmt.Errorf("hourly_rate %q: %w", c.HourlyRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("hourly_rate must be >= 0 (got %s)", rate)
	}
	c.rate = rate

	return nil
}
