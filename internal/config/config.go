// Package config loads solsim settings from an optional YAML file and
// SOLSIM_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/adapters/rpc"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/persistence/middleware"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SOLSIM_"

// ResultsPathEnv carries the serialized results path to the viewer process.
const ResultsPathEnv = "SOLSIM_RESULTS_PATH"

// Config is the full solsim configuration.
type Config struct {
	Runs        int      `yaml:"runs" env:"RUNS"`
	StepsPerRun int      `yaml:"steps_per_run" env:"STEPS_PER_RUN"`
	Watch       []string `yaml:"watch" env:"WATCH" envSeparator:","`
	Script      string   `yaml:"script" env:"SCRIPT"`

	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`
	MetricsAddr string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	Store       string `yaml:"store" env:"STORE"`
	// StoreKey, a base64 AES-256 key, encrypts stored results.
	StoreKey string `yaml:"store_key" env:"STORE_KEY"`

	Localnet Localnet `yaml:"localnet" envPrefix:"LOCALNET_"`
	Viz      Viz      `yaml:"viz" envPrefix:"VIZ_"`
}

// Localnet configures the validator backing process-backed systems.
type Localnet struct {
	Enabled          bool          `yaml:"enabled" env:"ENABLED"`
	Command          string        `yaml:"command" env:"COMMAND"`
	Dir              string        `yaml:"dir" env:"DIR"`
	Workspace        string        `yaml:"workspace" env:"WORKSPACE"`
	RPCURL           string        `yaml:"rpc_url" env:"RPC_URL"`
	Commitment       string        `yaml:"commitment" env:"COMMITMENT"`
	ProcessName      string        `yaml:"process_name" env:"PROCESS_NAME"`
	ReadyMarker      string        `yaml:"ready_marker" env:"READY_MARKER"`
	PollInterval     time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	StartupTimeout   time.Duration `yaml:"startup_timeout" env:"STARTUP_TIMEOUT"`
	TerminateTimeout time.Duration `yaml:"terminate_timeout" env:"TERMINATE_TIMEOUT"`
	ReuseRunning     bool          `yaml:"reuse_running" env:"REUSE_RUNNING"`
}

// Viz configures the results viewer.
type Viz struct {
	// Viewer is the command started with ResultsPathEnv set. Empty means
	// this binary's own `view` command.
	Viewer string `yaml:"viewer" env:"VIEWER"`
	Addr   string `yaml:"addr" env:"ADDR"`
}

// Default returns the built-in configuration.
func Default() Config {
	pc := process.DefaultConfig()
	return Config{
		Runs:        1,
		StepsPerRun: 1,
		LogLevel:    "info",
		LogFormat:   "text",
		Localnet: Localnet{
			Command:          strings.Join(pc.Command, " "),
			RPCURL:           rpc.DefaultEndpoint,
			Commitment:       string(domain.DefaultCommitment),
			ProcessName:      pc.ProcessName,
			ReadyMarker:      pc.ReadyMarker,
			PollInterval:     pc.PollInterval,
			StartupTimeout:   pc.StartupTimeout,
			TerminateTimeout: pc.TerminateTimeout,
		},
		Viz: Viz{Addr: "127.0.0.1:8050"},
	}
}

// Load reads path over Default, then applies SOLSIM_* variables from
// environ, or from the process environment when environ is nil. An empty
// path skips the file.
func Load(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the engine or supervisor cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.Runs < 0 {
		errs = append(errs, fmt.Errorf("runs must not be negative, got %d", c.Runs))
	}
	if c.StepsPerRun < 1 {
		errs = append(errs, fmt.Errorf("steps_per_run must be at least 1, got %d", c.StepsPerRun))
	}
	if _, err := domain.ParseCommitment(c.Localnet.Commitment); err != nil {
		errs = append(errs, err)
	}
	if c.StoreKey != "" {
		if _, err := middleware.ParseKey(c.StoreKey); err != nil {
			errs = append(errs, fmt.Errorf("store_key: %w", err))
		}
	}
	if err := c.Process().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("localnet: %w", err))
	}
	return errors.Join(errs...)
}

// Process returns the supervisor configuration of the validator.
func (c Config) Process() process.Config {
	return process.Config{
		Command:          strings.Fields(c.Localnet.Command),
		Dir:              c.Localnet.Dir,
		ProcessName:      c.Localnet.ProcessName,
		ReadyMarker:      c.Localnet.ReadyMarker,
		PollInterval:     c.Localnet.PollInterval,
		StartupTimeout:   c.Localnet.StartupTimeout,
		TerminateTimeout: c.Localnet.TerminateTimeout,
		ReuseRunning:     c.Localnet.ReuseRunning,
	}
}

// Commitment returns the parsed commitment, the default when invalid.
func (c Config) Commitment() domain.Commitment {
	commitment, err := domain.ParseCommitment(c.Localnet.Commitment)
	if err != nil {
		return domain.DefaultCommitment
	}
	return commitment
}
