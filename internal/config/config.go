// Package config provides configuration loading for skillforge.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/skillforge/internal/logging"
)

// SmokeTimeout is the fixed wall-clock bound for the smoke gate. The smoke
// test is a single happy-path assertion; anything slower is a hang.
const SmokeTimeout = 5 * time.Second

// Config is the root configuration for the skill builder.
type Config struct {
	// WorkDir is where per-build scratch directories are created.
	// Empty means the OS temp directory.
	WorkDir string `koanf:"work_dir"`

	// OutputDir is where finished skill packages are persisted.
	OutputDir string `koanf:"output_dir"`

	Gates     GatesConfig     `koanf:"gates"`
	Skill     SkillConfig     `koanf:"skill"`
	Generator GeneratorConfig `koanf:"generator"`
	Logging   logging.Config  `koanf:"logging"`
}

// GatesConfig bounds gate execution. The smoke timeout is fixed (see
// SmokeTimeout); only the later, heavier gates are configurable.
type GatesConfig struct {
	// RetryCeiling is the maximum attempts per gate before the build aborts.
	RetryCeiling int `koanf:"retry_ceiling"`

	// ContractTimeout bounds one contract-gate script run.
	ContractTimeout Duration `koanf:"contract_timeout"`

	// IntegrationTimeout bounds one integration-gate script run.
	IntegrationTimeout Duration `koanf:"integration_timeout"`
}

// SkillConfig supplies frontmatter values not derived from the prompt.
type SkillConfig struct {
	Version string `koanf:"version"`
	License string `koanf:"license"`
}

// GeneratorConfig configures the external content-generation command.
type GeneratorConfig struct {
	// Command is the executable invoked to produce script and documentation
	// text. It receives the gate name as its argument and the request on stdin.
	Command string `koanf:"command"`

	// Timeout bounds one generator invocation.
	Timeout Duration `koanf:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		OutputDir: ".",
		Gates: GatesConfig{
			RetryCeiling:       3,
			ContractTimeout:    Duration(30 * time.Second),
			IntegrationTimeout: Duration(30 * time.Second),
		},
		Skill: SkillConfig{
			Version: "0.1.0",
			License: "MIT",
		},
		Generator: GeneratorConfig{
			Timeout: Duration(120 * time.Second),
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Gates.RetryCeiling < 1 {
		return fmt.Errorf("gates.retry_ceiling must be >= 1, got %d", c.Gates.RetryCeiling)
	}
	if c.Gates.ContractTimeout.Duration() <= 0 {
		return fmt.Errorf("gates.contract_timeout must be positive")
	}
	if c.Gates.IntegrationTimeout.Duration() <= 0 {
		return fmt.Errorf("gates.integration_timeout must be positive")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Skill.Version == "" {
		return fmt.Errorf("skill.version is required")
	}
	if c.Skill.License == "" {
		return fmt.Errorf("skill.license is required")
	}
	if c.Generator.Timeout.Duration() <= 0 {
		return fmt.Errorf("generator.timeout must be positive")
	}
	return c.Logging.Validate()
}
