package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/internal/adapters"
	"github.com/aretw0/solsim/internal/config"
	"github.com/aretw0/solsim/internal/metrics"
	"github.com/aretw0/solsim/internal/runtime"
	"github.com/aretw0/solsim/internal/viz"
	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/persistence/middleware"
	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

type runFlags struct {
	runs        int
	stepsPerRun int
	vizResults  bool
	output      string
	format      string
	save        string
	metricsAddr string
	quiet       bool
}

func newRunCommand(g *globalFlags, build Builder) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [args...]",
		Short: "Run the simulation and print its results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("runs") {
				cfg.Runs = f.runs
			}
			if cmd.Flags().Changed("steps-per-run") {
				cfg.StepsPerRun = f.stepsPerRun
			}
			if cmd.Flags().Changed("save") {
				cfg.Store = f.save
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = f.metricsAddr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runSimulation(cmd, cfg, f, build, args)
		},
	}
	cmd.Flags().IntVarP(&f.runs, "runs", "r", 1, "Number of independent runs")
	cmd.Flags().IntVarP(&f.stepsPerRun, "steps-per-run", "s", 1, "Steps recorded per run, the initial step included")
	cmd.Flags().BoolVar(&f.vizResults, "viz-results", false, "Open the results viewer when the simulation ends")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write results to this file instead of stdout")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: table, csv, json or feather (default from --output extension, else table)")
	cmd.Flags().StringVar(&f.save, "save", "", "Store the results under their execution ID (memory:, file:dir, sqlite:path, redis://...)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address while running")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Do not print results")
	return cmd
}

func runSimulation(cmd *cobra.Command, cfg config.Config, f *runFlags, build Builder, args []string) error {
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}

	sm := viz.NewSignalManager(cmd.Context())
	defer sm.Stop()
	ctx := sm.Context()

	var hooks domain.LifecycleHooks
	supOpts := []process.Option{process.WithLogger(logger)}
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.New(reg)
		if err != nil {
			return err
		}
		hooks = collector.Hooks()
		supOpts = append(supOpts, process.WithTerminationHook(collector.ObserveTermination))

		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.MetricsAddr, metrics.Handler(reg), logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	target, err := build(ctx, Env{
		Config:     cfg,
		Logger:     logger,
		Supervisor: process.NewSupervisor(cfg.Process(), supOpts...),
		Args:       args,
	})
	if err != nil {
		return err
	}
	if target.Close != nil {
		defer target.Close()
	}

	executionID := uuid.NewString()
	engine := runtime.NewEngine(target.System, target.Watchlist,
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(domain.ComposeHooks(hooks, target.Hooks)),
		runtime.WithExecutionIDs(func() string { return executionID }),
	)

	table, err := engine.Run(ctx, cfg.Runs, cfg.StepsPerRun)
	if err != nil {
		if sm.Interrupted() {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}

	if cfg.Store != "" {
		if err := saveResults(ctx, cfg, executionID, table); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved results as %s\n", executionID)
	}

	if !f.quiet || f.output != "" {
		if err := writeResults(cmd, table, f.output, f.format); err != nil {
			return err
		}
	}

	if f.vizResults {
		viewer, err := viewerCommand(cfg)
		if err != nil {
			return err
		}
		return viz.Handoff(ctx, table, viz.NewCommandViewer(viewer,
			viz.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
			viz.WithLogger(logger),
		))
	}
	return nil
}

func saveResults(ctx context.Context, cfg config.Config, executionID string, table *results.Table) error {
	store, closer, err := openStore(ctx, cfg.Store, cfg.StoreKey)
	if err != nil {
		return err
	}
	defer closer.Close()
	if err := store.Save(ctx, executionID, table); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

// openStore opens dsn, encrypting through key when one is set.
func openStore(ctx context.Context, dsn, key string) (ports.ResultStore, io.Closer, error) {
	store, closer, err := adapters.OpenStore(ctx, dsn)
	if err != nil || key == "" {
		return store, closer, err
	}
	raw, err := middleware.ParseKey(key)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: raw})
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return middleware.Chain(store, mw), closer, nil
}

// viewerCommand is the configured viewer or this binary's view command.
func viewerCommand(cfg config.Config) ([]string, error) {
	if v := strings.Fields(cfg.Viz.Viewer); len(v) > 0 {
		return v, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate viewer: %w", err)
	}
	return []string{self, "view", "--addr", cfg.Viz.Addr}, nil
}
