package delivery

import (
	"time"

	appconfig "github.com/stayware/callguard/internal/config"
)

// Config controls the delivery worker's pace and batch size.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 15 * time.Second,
		BatchSize:   25,
		JobTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval: time.Duration(cfg.DeliveryIntervalSec) * time.Second,
		BatchSize:   cfg.DeliveryBatchSize,
	}.withDefaults()
}
