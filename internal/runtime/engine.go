package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

// maxPrealloc bounds the rows reserved up front; larger tables grow on append.
const maxPrealloc = 1 << 16

// Engine drives a System through runs × steps, accumulating state and
// collecting the watched quantities into a result table.
type Engine struct {
	system    ports.System
	watchlist domain.Watchlist
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	newID     func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithExecutionIDs overrides how execution IDs are generated.
func WithExecutionIDs(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEngine creates an engine for one system and watchlist.
func NewEngine(system ports.System, watchlist domain.Watchlist, opts ...EngineOption) *Engine {
	e := &Engine{
		system:    system,
		watchlist: watchlist,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Watchlist returns the quantities the engine retains.
func (e *Engine) Watchlist() domain.Watchlist {
	return e.watchlist
}

// Filter restricts a state to the watchlist plus the run and step index.
func (e *Engine) Filter(state domain.State) (domain.State, error) {
	return e.watchlist.Filter(state)
}

// driver is the step surface resolved from the system's capability.
type driver struct {
	initial   func(ctx context.Context) (domain.State, error)
	step      func(ctx context.Context, state domain.State, history domain.History) (domain.State, error)
	lifecycle ports.Lifecycle
}

func (e *Engine) resolve() (driver, error) {
	if e.system == nil {
		return driver{}, errors.New("no system configured")
	}
	if e.system.ProcessBacked() {
		ps, ok := e.system.(ports.ProcessSystem)
		if !ok {
			return driver{}, domain.ErrNoLifecycle
		}
		return driver{initial: ps.InitialStep, step: ps.Step, lifecycle: ps}, nil
	}

	st, ok := e.system.(ports.Stepper)
	if !ok {
		return driver{}, fmt.Errorf("plain system %T does not implement ports.Stepper", e.system)
	}
	// Plain systems never see the context: their calls cannot block.
	return driver{
		initial: func(context.Context) (domain.State, error) {
			return st.InitialStep()
		},
		step: func(_ context.Context, state domain.State, history domain.History) (domain.State, error) {
			return st.Step(state, history)
		},
	}, nil
}

// Run executes runs × stepsPerRun steps and returns the ordered result table.
//
// For process-backed systems Setup is called before each run and Teardown
// after it, on every exit path; Cleanup is called once after all runs, also
// on every exit path. Errors returned by the system are passed through
// unmodified. No partial table is returned on failure.
func (e *Engine) Run(ctx context.Context, runs, stepsPerRun int) (*results.Table, error) {
	if runs < 0 || stepsPerRun < 1 {
		return nil, fmt.Errorf("%w: runs=%d steps_per_run=%d", domain.ErrInvalidRun, runs, stepsPerRun)
	}
	d, err := e.resolve()
	if err != nil {
		return nil, err
	}

	executionID := e.newID()
	logger := e.logger.With("execution_id", executionID)
	logger.Info("simulation started", "runs", runs, "steps_per_run", stepsPerRun, "process_backed", d.lifecycle != nil)

	rows := maxPrealloc
	if runs <= maxPrealloc/stepsPerRun {
		rows = runs * stepsPerRun
	}
	records := make([]domain.State, 0, rows)
	if err := e.execute(ctx, d, executionID, runs, stepsPerRun, &records); err != nil {
		logger.Error("simulation failed", "error", err)
		return nil, err
	}

	logger.Info("simulation finished", "rows", len(records))
	return results.New(records), nil
}

func (e *Engine) execute(ctx context.Context, d driver, executionID string, runs, stepsPerRun int, records *[]domain.State) (err error) {
	if d.lifecycle != nil {
		defer func() {
			// Cleanup must run even when ctx was cancelled mid-run.
			if cerr := d.lifecycle.Cleanup(context.WithoutCancel(ctx)); cerr != nil {
				err = joinErrors(err, fmt.Errorf("cleanup: %w", cerr))
			}
		}()
	}

	for run := 0; run < runs; run++ {
		if err := e.runOnce(ctx, d, executionID, run, stepsPerRun, records); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runOnce(ctx context.Context, d driver, executionID string, run, stepsPerRun int, records *[]domain.State) (err error) {
	logger := e.logger.With("execution_id", executionID, "run", run)
	phase := PhaseNotStarted

	e.emitRun(ctx, domain.EventRunStart, executionID, run, 0, nil)
	steps := 0
	defer func() {
		e.emitRun(ctx, domain.EventRunEnd, executionID, run, steps, err)
	}()

	if d.lifecycle != nil {
		defer func() {
			if terr := d.lifecycle.Teardown(context.WithoutCancel(ctx)); terr != nil {
				err = joinErrors(err, fmt.Errorf("teardown run %d: %w", run, terr))
			}
			phase = PhaseTornDown
			logger.Debug("run phase", "phase", phase)
		}()
		if err := d.lifecycle.Setup(ctx); err != nil {
			return fmt.Errorf("setup run %d: %w", run, err)
		}
	}
	phase = PhaseReady
	logger.Debug("run phase", "phase", phase)

	state := domain.State{}
	history := make(domain.History, 0, min(stepsPerRun, maxPrealloc))
	phase = PhaseStepping
	for step := 0; step < stepsPerRun; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		var updates domain.State
		var serr error
		if step == 0 {
			updates, serr = d.initial(ctx)
		} else {
			// the recorded state stays intact if the system writes to its argument
			updates, serr = d.step(ctx, state.Clone(), slices.Clip(history))
		}
		if serr != nil {
			return serr
		}

		state = state.Merge(updates, run, step)
		history = append(history, state)

		record, ferr := e.watchlist.Filter(state)
		if ferr != nil {
			return ferr
		}
		*records = append(*records, record)
		steps++

		elapsed := time.Since(started)
		logger.Debug("step", "step", step, "duration", elapsed)
		e.emitStep(ctx, executionID, run, step, elapsed, record)
	}
	return nil
}

func (e *Engine) emitRun(ctx context.Context, typ domain.EventType, executionID string, run, steps int, err error) {
	hook := e.hooks.OnRunStart
	if typ == domain.EventRunEnd {
		hook = e.hooks.OnRunEnd
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.RunEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, ExecutionID: executionID},
		Run:       run,
		Steps:     steps,
		Err:       err,
	})
}

func (e *Engine) emitStep(ctx context.Context, executionID string, run, step int, elapsed time.Duration, record domain.State) {
	if e.hooks.OnStep == nil {
		return
	}
	e.hooks.OnStep(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStep, ExecutionID: executionID},
		Run:       run,
		Step:      step,
		Duration:  elapsed,
		State:     record.Clone(),
	})
}

// joinErrors keeps a lone failure unwrapped and joins a primary failure
// with a later release failure.
func joinErrors(primary, release error) error {
	if primary == nil {
		return release
	}
	return errors.Join(primary, release)
}
