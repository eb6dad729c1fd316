package process

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for a local Solana test validator started through Anchor.
const (
	DefaultProcessName      = "solana-test-validator"
	DefaultReadyMarker      = "| Processed Slot: "
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultStartupTimeout   = 2 * time.Minute
	DefaultTerminateTimeout = 10 * time.Second
)

// Config describes the external process a Supervisor owns.
type Config struct {
	Command     []string          `yaml:"command"`
	Dir         string            `yaml:"dir"`
	Env         map[string]string `yaml:"env"`
	ProcessName string            `yaml:"process_name"`
	ReadyMarker string            `yaml:"ready_marker"`

	PollInterval     time.Duration `yaml:"poll_interval"`
	StartupTimeout   time.Duration `yaml:"startup_timeout"`
	TerminateTimeout time.Duration `yaml:"terminate_timeout"`

	// ReuseRunning adopts a live process matching ProcessName instead of
	// killing it and spawning a fresh one.
	ReuseRunning bool `yaml:"reuse_running"`
}

// DefaultConfig returns the configuration for `anchor localnet`.
func DefaultConfig() Config {
	return Config{
		Command:          []string{"anchor", "localnet"},
		ProcessName:      DefaultProcessName,
		ReadyMarker:      DefaultReadyMarker,
		PollInterval:     DefaultPollInterval,
		StartupTimeout:   DefaultStartupTimeout,
		TerminateTimeout: DefaultTerminateTimeout,
	}
}

// Validate checks the fields the supervisor relies on.
func (c Config) Validate() error {
	switch {
	case c.ReadyMarker == "":
		return fmt.Errorf("ready_marker must not be empty")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	case c.TerminateTimeout <= 0:
		return fmt.Errorf("terminate_timeout must be positive, got %s", c.TerminateTimeout)
	case c.StartupTimeout < 0:
		return fmt.Errorf("startup_timeout must not be negative, got %s", c.StartupTimeout)
	}
	return nil
}

// LoadConfig reads a YAML (or JSON) file over DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read process config: %w", err)
	}
	// JSON is valid YAML, so one decoder serves both.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse process config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
