// Package logging builds the structured Zap logger used across skillforge.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format selects the encoder: json or console.
	Format string `koanf:"format"`
}

// DefaultConfig returns production defaults: info-level JSON output.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// Validate checks the config fields.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("invalid log format %q: must be json or console", c.Format)
	}
	return nil
}

// New creates a logger from config.
func New(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logging config: %w", err)
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Format
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// ForBuild returns a child logger carrying the build's identity fields.
// Every component invoked within one build invocation logs through this.
func ForBuild(base *zap.Logger, buildID, skillName string) *zap.Logger {
	fields := []zap.Field{zap.String("build_id", buildID)}
	if skillName != "" {
		fields = append(fields, zap.String("skill", skillName))
	}
	return base.With(fields...)
}
