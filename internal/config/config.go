// Package config provides unified configuration loading for springnet.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains all springnet configuration settings.
type Config struct {
	// Solver contains the numerical policy for the relaxation engine.
	Solver SolverConfig `json:"solver" yaml:"solver"`

	// Schedule contains the outer strain-loading loop defaults.
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`

	// Avalanche contains the inner relax/break loop settings.
	Avalanche AvalancheConfig `json:"avalanche" yaml:"avalanche"`

	// Logging contains log verbosity settings.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SolverConfig fixes the minimizer policy for the whole run. The avalanche
// loop never tunes these per call.
type SolverConfig struct {
	// MinStyle is the minimization algorithm name passed to the engine.
	MinStyle string `json:"min_style" yaml:"min_style"`

	// EnergyTol is the relative energy-change stopping tolerance.
	EnergyTol float64 `json:"energy_tol" yaml:"energy_tol"`

	// ForceTol is the force stopping tolerance.
	ForceTol float64 `json:"force_tol" yaml:"force_tol"`

	// MaxIter caps minimizer iterations per relaxation. This is the only
	// bound on a single relaxing phase.
	MaxIter int `json:"max_iter" yaml:"max_iter"`

	// MaxEval caps force evaluations per relaxation.
	MaxEval int `json:"max_eval" yaml:"max_eval"`

	// Boundary is the per-axis boundary style ("p s p": periodic x,
	// shrink-wrapped y, periodic z). The x entry decides whether the
	// breakage evaluator applies minimum-image wrapping.
	Boundary string `json:"boundary" yaml:"boundary"`
}

// XPeriodic reports whether the x axis uses periodic wrapping.
func (c SolverConfig) XPeriodic() bool {
	fields := strings.Fields(c.Boundary)
	return len(fields) > 0 && fields[0] == "p"
}

// ScheduleConfig configures the outer strain-step loop.
type ScheduleConfig struct {
	// Steps is the number of strain increments to apply.
	Steps int `json:"steps" yaml:"steps"`

	// Increment is the y displacement applied to the top group per step.
	Increment float64 `json:"increment" yaml:"increment"`
}

// AvalancheConfig configures the inner relax/evaluate/break loop.
type AvalancheConfig struct {
	// MaxIterations is a safety cutoff on relax/break cycles within one
	// strain step. 0 means unbounded, matching the original driver; a
	// cascade that exceeds a non-zero cutoff aborts the run with a
	// did-not-converge error.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// LoggingConfig configures springnet's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables per-bond break tracing to a JSONL file.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with the original driver's numerical policy.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			MinStyle:  "cg",
			EnergyTol: 1.0e-5,
			ForceTol:  1.0e-7,
			MaxIter:   1000,
			MaxEval:   10000,
			Boundary:  "p s p",
		},
		Schedule: ScheduleConfig{
			Steps:     10,
			Increment: 0.1,
		},
		Avalanche: AvalancheConfig{
			MaxIterations: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from an optional YAML file and environment
// variables. Order: defaults -> file (if path non-empty) -> env overrides.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Solver.EnergyTol <= 0 {
		return fmt.Errorf("energy_tol must be positive, got %g", c.Solver.EnergyTol)
	}
	if c.Solver.ForceTol <= 0 {
		return fmt.Errorf("force_tol must be positive, got %g", c.Solver.ForceTol)
	}
	if c.Solver.MaxIter <= 0 {
		return fmt.Errorf("max_iter must be positive, got %d", c.Solver.MaxIter)
	}
	if c.Solver.MaxEval <= 0 {
		return fmt.Errorf("max_eval must be positive, got %d", c.Solver.MaxEval)
	}
	if len(strings.Fields(c.Solver.Boundary)) != 3 {
		return fmt.Errorf("boundary must have three axis entries, got %q", c.Solver.Boundary)
	}
	if c.Schedule.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Schedule.Steps)
	}
	if c.Avalanche.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative, got %d", c.Avalanche.MaxIterations)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SPRINGNET_MIN_STYLE"); v != "" {
		config.Solver.MinStyle = v
	}
	if v := os.Getenv("SPRINGNET_ENERGY_TOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Solver.EnergyTol = f
		}
	}
	if v := os.Getenv("SPRINGNET_FORCE_TOL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Solver.ForceTol = f
		}
	}
	if v := os.Getenv("SPRINGNET_MAX_ITER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Solver.MaxIter = n
		}
	}
	if v := os.Getenv("SPRINGNET_MAX_EVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Solver.MaxEval = n
		}
	}
	if v := os.Getenv("SPRINGNET_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Schedule.Steps = n
		}
	}
	if v := os.Getenv("SPRINGNET_INCREMENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Schedule.Increment = f
		}
	}
	if v := os.Getenv("SPRINGNET_AVALANCHE_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Avalanche.MaxIterations = n
		}
	}
	if v := os.Getenv("SPRINGNET_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
