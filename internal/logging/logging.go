// Package logging builds the zerolog logger used across the dashboard.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level, the output format and the destination.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New returns a logger with a timestamp and a "service" field.
func New(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.Output != nil}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "leads-dashboard").Logger(), nil
}

// ParseLevel maps a level name to zerolog. Empty means info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	if name == "warning" {
		name = "warn"
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}
