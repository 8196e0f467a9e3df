package app

import "time"

// Config holds everything an App instance needs to run.
type Config struct {
	ResourcesPath string // hcl resource files
	StorePath     string // badger directory; empty keeps graphs in memory

	LogFormat    string
	LogLevel     string
	MetricsPort  int
	TickInterval time.Duration
	Watch        bool
}

// NewConfig validates a config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ResourcesPath == "" {
		return nil, errEmptyResources
	}
	return &cfg, nil
}
