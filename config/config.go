// Package config loads process configuration from the environment
//, following the same envconfig-driven pattern used across
// the broader example corpus for small services with a handful of
// tunables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/pitwall/timingpipeline/internal/errs"
)

// Config is the process-wide configuration.
type Config struct {
	EventID int    `envconfig:"EVENT_ID"`
	PodName string `envconfig:"POD_NAME" required:"true"`

	FinalizeSessionQuietPeriod time.Duration `envconfig:"FINALIZE_SESSION_QUIET_PERIOD" default:"10m"`
	IdleCheckInterval          time.Duration `envconfig:"IDLE_CHECK_INTERVAL" default:"30s"`
	LapProcessorFinalizeDelay  time.Duration `envconfig:"LAP_PROCESSOR_FINALIZE_DELAY" default:"1s"`
	PitPassingDedupWindow      time.Duration `envconfig:"PIT_PASSING_DEDUP_WINDOW" default:"60s"`
	StaleCheckMinLap           int           `envconfig:"STALE_CHECK_MIN_LAP" default:"3"`
}

// Load reads Config from the environment. A missing event id is a Fatal
// error: the process must refuse to start.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.EventID == 0 {
		return Config{}, errs.ErrMissingEventID
	}
	return cfg, nil
}
