// Package cli builds the solsim cobra commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/internal/config"
	"github.com/aretw0/solsim/internal/logging"
	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
)

// Target is the system a `run` command simulates.
type Target struct {
	System    ports.System
	Watchlist domain.Watchlist
	Hooks     domain.LifecycleHooks
	// Close, when set, is called after the run.
	Close func()
}

// Env is what a Builder may use to assemble its system.
type Env struct {
	Config     config.Config
	Logger     *slog.Logger
	Supervisor *process.Supervisor
	Args       []string
}

// Builder creates the system to simulate for one invocation of `run`.
type Builder func(ctx context.Context, env Env) (Target, error)

// Static returns a Builder that always simulates system.
func Static(system ports.System, watchlist domain.Watchlist) Builder {
	return func(context.Context, Env) (Target, error) {
		return Target{System: system, Watchlist: watchlist}, nil
	}
}

// flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand assembles name with the run, view, localnet and results
// subcommands.
func NewRootCommand(name, short string, build Builder) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           name,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(
		newRunCommand(g, build),
		newViewCommand(g),
		newLocalnetCommand(g),
		newResultsCommand(g),
	)
	return root
}

// load reads the configuration and applies the global flags.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath, nil)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return logging.New(logging.Options{Level: level, Format: cfg.LogFormat, Writer: cmd.ErrOrStderr()}), nil
}
