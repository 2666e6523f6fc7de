package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	QueryPath string

	LogFormat string
	LogLevel  string

	EmitURL     string
	EmitTimeout time.Duration
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.QueryPath == "" {
		return nil, errors.New("QueryPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
