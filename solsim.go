package solsim

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/internal/cli"
	"github.com/aretw0/solsim/internal/runtime"
	"github.com/aretw0/solsim/internal/viz"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

// IndexColumns lead every results table.
var IndexColumns = results.IndexColumns

// Simulation runs a system repeatedly and collects its watched quantities.
type Simulation struct {
	Name string

	system    ports.System
	watchlist domain.Watchlist
	engine    *runtime.Engine
	viewer    ports.Viewer
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Simulation) {
		s.hooks = hooks
	}
}

// WithViewer replaces the viewer used when Run is asked to visualize.
func WithViewer(v ports.Viewer) Option {
	return func(s *Simulation) {
		s.viewer = v
	}
}

// WithName sets the command name used by Command.
func WithName(name string) Option {
	return func(s *Simulation) {
		s.Name = name
	}
}

// New creates a simulation of system recording the watched quantities.
// Quantities are checked lazily, when the first state is filtered.
func New(system ports.System, watch []string, opts ...Option) *Simulation {
	s := &Simulation{
		Name:      "solsim",
		system:    system,
		watchlist: domain.NewWatchlist(watch...),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.viewer == nil {
		s.viewer = &viz.HTTPViewer{Logger: s.logger, Ready: func(url string) {
			s.logger.Info("results viewer listening", "url", url)
		}}
	}
	s.engine = runtime.NewEngine(system, s.watchlist,
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
	)
	return s
}

// Watchlist returns the watched quantities.
func (s *Simulation) Watchlist() domain.Watchlist {
	return s.watchlist
}

// Run executes runs independent runs of stepsPerRun steps each and returns
// the results table. With visualize set, the table is handed to the viewer
// and Run returns once the viewer exits or the process is interrupted.
func (s *Simulation) Run(ctx context.Context, runs, stepsPerRun int, visualize bool) (*results.Table, error) {
	table, err := s.engine.Run(ctx, runs, stepsPerRun)
	if err != nil {
		return nil, err
	}
	if visualize {
		if err := viz.Handoff(ctx, table, s.viewer); err != nil {
			return table, err
		}
	}
	return table, nil
}

// Filter restricts state to the watched quantities plus the index columns.
func (s *Simulation) Filter(state domain.State) (domain.State, error) {
	return s.engine.Filter(state)
}

// Command returns a command line for this simulation: `run` plus the
// view, localnet and results utilities.
func (s *Simulation) Command() *cobra.Command {
	build := func(context.Context, cli.Env) (cli.Target, error) {
		return cli.Target{System: s.system, Watchlist: s.watchlist, Hooks: s.hooks}, nil
	}
	return cli.NewRootCommand(s.Name, "Run the "+s.Name+" simulation", build)
}

// Main runs Command with the process arguments and exits.
func (s *Simulation) Main() {
	os.Exit(cli.Execute(context.Background(), s.Command()))
}
