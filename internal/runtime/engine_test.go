package runtime_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/internal/runtime"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
)

func counter() ports.StepFunc {
	return ports.StepFunc{
		Initial: func() (domain.State, error) {
			return domain.State{"x": 0}, nil
		},
		Next: func(state domain.State, _ domain.History) (domain.State, error) {
			return domain.State{"x": state["x"].(int) + 1}, nil
		},
	}
}

func TestEngine_CountingSystem(t *testing.T) {
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"))

	table, err := engine.Run(context.Background(), 1, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"run", "step", "x"}, table.Columns())
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []any{0, 0, 0}, table.Row(0))
	assert.Equal(t, []any{0, 1, 1}, table.Row(1))
	assert.Equal(t, []any{0, 2, 2}, table.Row(2))
}

func TestEngine_IndexCoverage(t *testing.T) {
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"))

	table, err := engine.Run(context.Background(), 3, 4)
	require.NoError(t, err)
	require.Equal(t, 12, table.Len())

	i := 0
	for run := 0; run < 3; run++ {
		for step := 0; step < 4; step++ {
			rec := table.Record(i)
			assert.Equal(t, run, rec.Run())
			assert.Equal(t, step, rec.Step())
			// every run restarts from an empty state
			assert.Equal(t, step, rec["x"])
			i++
		}
	}
	assert.Equal(t, 3, table.Runs())
	assert.Equal(t, 4, table.StepsPerRun())
}

func TestEngine_ZeroRuns(t *testing.T) {
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"))

	table, err := engine.Run(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestEngine_InvalidParameters(t *testing.T) {
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"))

	_, err := engine.Run(context.Background(), -1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidRun)

	_, err = engine.Run(context.Background(), 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRun)
}

func TestEngine_ColumnOrderIndependentOfKeyOrder(t *testing.T) {
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) {
			return domain.State{"zeta": 1, "alpha": 2, "mid": 3}, nil
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("mid", "zeta", "alpha"))

	table, err := engine.Run(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "step", "alpha", "mid", "zeta"}, table.Columns())
}

func TestEngine_UnwatchedQuantitiesDropped(t *testing.T) {
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) {
			return domain.State{"kept": 1, "scratch": "tmp"}, nil
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("kept"))

	table, err := engine.Run(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "step", "kept"}, table.Columns())
	assert.False(t, table.Record(0).Has("scratch"))
}

func TestEngine_StateAccumulates(t *testing.T) {
	// Quantities not returned by a step carry over from the previous state.
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) {
			return domain.State{"a": 1, "b": 10}, nil
		},
		Next: func(state domain.State, _ domain.History) (domain.State, error) {
			return domain.State{"a": state["a"].(int) + 1}, nil
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("a", "b"))

	table, err := engine.Run(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, table.Column("a"))
	assert.Equal(t, []any{10, 10, 10}, table.Column("b"))
}

func TestEngine_HistoryGrows(t *testing.T) {
	var lengths []int
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) { return domain.State{}, nil },
		Next: func(state domain.State, history domain.History) (domain.State, error) {
			lengths = append(lengths, len(history))
			last, ok := history.Last()
			require.True(t, ok)
			assert.Equal(t, state, last)
			return domain.State{}, nil
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist())

	_, err := engine.Run(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3}, lengths)
}

func TestEngine_MissingQuantityAborts(t *testing.T) {
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) { return domain.State{"x": 1}, nil },
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("x", "y"))

	table, err := engine.Run(context.Background(), 2, 2)
	assert.Nil(t, table)
	require.ErrorIs(t, err, domain.ErrMissingQuantity)

	var missing *domain.MissingQuantityError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "y", missing.Quantity)
}

func TestEngine_SystemErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) { return domain.State{"x": 0}, nil },
		Next: func(domain.State, domain.History) (domain.State, error) {
			return nil, boom
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("x"))

	_, err := engine.Run(context.Background(), 1, 3)
	assert.Same(t, boom, err)
}

func TestEngine_Filter(t *testing.T) {
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"))

	rec, err := engine.Filter(domain.State{"x": 4, "y": 5, "run": 1, "step": 2})
	require.NoError(t, err)
	assert.Equal(t, domain.State{"x": 4, "run": 1, "step": 2}, rec)

	_, err = engine.Filter(domain.State{"y": 5})
	assert.ErrorIs(t, err, domain.ErrMissingQuantity)
}

func TestEngine_PlainSystemMustStep(t *testing.T) {
	engine := runtime.NewEngine(flagOnly(false), domain.NewWatchlist())

	_, err := engine.Run(context.Background(), 1, 1)
	assert.Error(t, err)
}

func TestEngine_Hooks(t *testing.T) {
	var starts, ends, steps int
	var lastEnd *domain.RunEvent
	hooks := domain.LifecycleHooks{
		OnRunStart: func(context.Context, *domain.RunEvent) { starts++ },
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			ends++
			lastEnd = e
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			steps++
			assert.Equal(t, "exec-1", e.ExecutionID)
			assert.Equal(t, e.Step, e.State.Step())
		},
	}
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithExecutionIDs(func() string { return "exec-1" }),
	)

	_, err := engine.Run(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, starts)
	assert.Equal(t, 2, ends)
	assert.Equal(t, 6, steps)
	require.NotNil(t, lastEnd)
	assert.Equal(t, 1, lastEnd.Run)
	assert.Equal(t, 3, lastEnd.Steps)
	assert.NoError(t, lastEnd.Err)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) { return domain.State{}, nil },
		Next: func(domain.State, domain.History) (domain.State, error) {
			cancel()
			return domain.State{}, nil
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist())

	_, err := engine.Run(ctx, 1, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_StepCannotRewriteHistory(t *testing.T) {
	sys := ports.StepFunc{
		Initial: func() (domain.State, error) { return domain.State{"x": 0}, nil },
		Next: func(state domain.State, history domain.History) (domain.State, error) {
			for i, past := range history {
				assert.Equal(t, i, past["x"])
				assert.NotContains(t, past, "scratch")
			}
			next := state["x"].(int) + 1
			state["x"] = -1
			state["scratch"] = true
			return domain.State{"x": next}, nil
		},
	}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("x"))

	table, err := engine.Run(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2, 3}, table.Column("x"))
}

func TestEngine_HugeRunCountDoesNotOverflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engine := runtime.NewEngine(counter(), domain.NewWatchlist("x"))

	assert.NotPanics(t, func() {
		_, err := engine.Run(ctx, math.MaxInt/2, 4)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "not_started", runtime.PhaseNotStarted.String())
	assert.Equal(t, "ready", runtime.PhaseReady.String())
	assert.Equal(t, "stepping", runtime.PhaseStepping.String())
	assert.Equal(t, "torn_down", runtime.PhaseTornDown.String())
	assert.Equal(t, "unknown", runtime.Phase(42).String())
}
