// Package config loads per-process configuration for the coordinator and
// client binaries (§6), scaled down from the teacher's multi-environment,
// multi-network loader to the single-environment case this protocol needs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// CoordinatorConfig is the coordinator process's configuration (§6): the
// required participant count, the modular base, the listen address, and
// the vector length every client's submission must match.
type CoordinatorConfig struct {
	Threshold    int    `yaml:"threshold"`
	Base         int64  `yaml:"base"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	VectorLength int    `yaml:"vector_length"`
	// MaskMode names ScalarMask (default) or the §12-supplemented
	// VectorMask; stored as a string here and resolved by the caller
	// against mask.Mode to keep this package independent of mask. The
	// coordinator only records it in its logs: masks are applied by the
	// clients, each of which uses its own mode setting.
	MaskMode string `yaml:"mask_mode"`
}

// ClientConfig is one participant's configuration (§6): its private
// vector and the coordinator it connects to.
type ClientConfig struct {
	PrivateVector []int64 `yaml:"private_vector"`
	Host          string  `yaml:"host"`
	Port          int     `yaml:"port"`
}

// Validate checks the invariants §3/§7 require at session start; a
// failure here is a fatal ConfigError per §7, identifiable with
// errors.Is(err, ErrConfig).
func (c *CoordinatorConfig) Validate() error {
	if c.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive, got %d", ErrConfig, c.Threshold)
	}
	if c.Base < 2 {
		return fmt.Errorf("%w: base must be >= 2, got %d", ErrConfig, c.Base)
	}
	if c.VectorLength <= 0 {
		return fmt.Errorf("%w: vector_length must be positive, got %d", ErrConfig, c.VectorLength)
	}
	if c.Host == "" {
		return fmt.Errorf("%w: host must not be empty", ErrConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrConfig, c.Port)
	}
	return nil
}

// Validate checks a client's configuration.
func (c *ClientConfig) Validate() error {
	if len(c.PrivateVector) == 0 {
		return fmt.Errorf("%w: private_vector must not be empty", ErrConfig)
	}
	if c.Host == "" {
		return fmt.Errorf("%w: host must not be empty", ErrConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrConfig, c.Port)
	}
	return nil
}

// LoadCoordinatorConfig reads a CoordinatorConfig from the YAML file at
// path if it exists, then applies environment-variable overrides, the way
// the teacher's loader layers env vars on top of a file's defaults.
func LoadCoordinatorConfig(path string) (*CoordinatorConfig, error) {
	cfg := &CoordinatorConfig{
		Threshold:    2,
		Base:         1000000,
		Host:         "localhost",
		Port:         8001,
		VectorLength: 5,
		MaskMode:     "scalar",
	}

	if err := loadYAMLIfExists(path, cfg); err != nil {
		return nil, err
	}
	applyCoordinatorEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClientConfig reads a ClientConfig from the YAML file at path if it
// exists, then applies environment-variable overrides.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{
		Host: "localhost",
		Port: 8001,
	}

	if err := loadYAMLIfExists(path, cfg); err != nil {
		return nil, err
	}
	applyClientEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLIfExists(path string, out interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyCoordinatorEnvOverrides(cfg *CoordinatorConfig) {
	if v := os.Getenv("SECAGG_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Threshold = n
		}
	}
	if v := os.Getenv("SECAGG_BASE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Base = n
		}
	}
	if v := os.Getenv("SECAGG_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SECAGG_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("SECAGG_VECTOR_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VectorLength = n
		}
	}
	if v := os.Getenv("SECAGG_MASK_MODE"); v != "" {
		cfg.MaskMode = v
	}
}

func applyClientEnvOverrides(cfg *ClientConfig) {
	if v := os.Getenv("SECAGG_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SECAGG_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
}
