package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type SchedulerConfig struct {
	MaxPending int           `env:"SCHED_MAX_PENDING, default=1024"`
	MinDelay   time.Duration `env:"SCHED_MIN_DELAY, default=1ms"`
	LogLevel   string        `env:"SCHED_LOG_LEVEL, default=info"`
}

func NewSchedulerConfigFromEnv() (*SchedulerConfig, error) {
	return newSchedulerConfig(envconfig.OsLookuper())
}

func newSchedulerConfig(lookuper envconfig.Lookuper) (*SchedulerConfig, error) {
	var cfg SchedulerConfig
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.MaxPending < 1 {
		return nil, fmt.Errorf("SCHED_MAX_PENDING must be at least 1, got %d", cfg.MaxPending)
	}
	if cfg.MinDelay <= 0 {
		return nil, fmt.Errorf("SCHED_MIN_DELAY must be positive, got %s", cfg.MinDelay)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level parses LogLevel into a slog level.
func (c *SchedulerConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid SCHED_LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
