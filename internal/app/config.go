package app

import (
	"errors"
	"fmt"
	"runtime"
)

// Config holds the process-wide settings shared by every command.
type Config struct {
	Paths []string // hcl files or directories

	LogFormat string
	LogLevel  string
	// Jobs bounds concurrently running subproject builds; 0 means the
	// number of CPUs.
	Jobs    int
	NoColor bool
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{"."}
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("%w: invalid log-format %q: must be 'text' or 'json'", ErrUsage, cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("%w: invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", ErrUsage, cfg.LogLevel)
	}
	if cfg.Jobs < 0 {
		return nil, errors.Join(ErrUsage, errors.New("jobs must not be negative"))
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.NumCPU()
	}
	return &cfg, nil
}
