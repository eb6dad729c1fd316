package solsim_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

func counter() ports.StepFunc {
	return ports.StepFunc{
		Initial: func() (domain.State, error) { return domain.State{"x": 0, "noise": "a"}, nil },
		Next: func(state domain.State, _ domain.History) (domain.State, error) {
			return domain.State{"x": state["x"].(int) + 1}, nil
		},
	}
}

type recordingViewer struct {
	shown *results.Table
	err   error
}

func (v *recordingViewer) Show(_ context.Context, table *results.Table) error {
	v.shown = table
	return v.err
}

func TestSimulation_Run(t *testing.T) {
	sim := solsim.New(counter(), []string{"x"})

	table, err := sim.Run(context.Background(), 2, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "step", "x"}, table.Columns())
	assert.Equal(t, []any{0, 1, 2, 0, 1, 2}, table.Column("x"))
	assert.Equal(t, []string{"run", "step"}, solsim.IndexColumns)
}

func TestSimulation_Visualize(t *testing.T) {
	viewer := &recordingViewer{}
	sim := solsim.New(counter(), []string{"x"}, solsim.WithViewer(viewer))

	table, err := sim.Run(context.Background(), 1, 2, true)
	require.NoError(t, err)
	assert.Same(t, table, viewer.shown)

	viewer.err = errors.New("display unavailable")
	table, err = sim.Run(context.Background(), 1, 2, true)
	assert.ErrorIs(t, err, viewer.err)
	assert.NotNil(t, table)
}

func TestSimulation_NotVisualizedOnFailure(t *testing.T) {
	viewer := &recordingViewer{}
	sim := solsim.New(counter(), []string{"missing"}, solsim.WithViewer(viewer))

	_, err := sim.Run(context.Background(), 1, 2, true)
	require.ErrorIs(t, err, domain.ErrMissingQuantity)
	assert.Nil(t, viewer.shown)
}

func TestSimulation_Filter(t *testing.T) {
	sim := solsim.New(counter(), []string{"x"})

	rec, err := sim.Filter(domain.State{"run": 0, "step": 1, "x": 3, "noise": "b"})
	require.NoError(t, err)
	assert.Equal(t, domain.State{"run": 0, "step": 1, "x": 3}, rec)
	assert.Equal(t, []string{"x"}, sim.Watchlist().Names())
}

func TestSimulation_Hooks(t *testing.T) {
	steps := 0
	sim := solsim.New(counter(), []string{"x"}, solsim.WithLifecycleHooks(domain.LifecycleHooks{
		OnStep: func(context.Context, *domain.StepEvent) { steps++ },
	}))

	_, err := sim.Run(context.Background(), 3, 2, false)
	require.NoError(t, err)
	assert.Equal(t, 6, steps)
}

func TestSimulation_Command(t *testing.T) {
	steps := 0
	sim := solsim.New(counter(), []string{"x"},
		solsim.WithName("counter"),
		solsim.WithLifecycleHooks(domain.LifecycleHooks{
			OnStep: func(context.Context, *domain.StepEvent) { steps++ },
		}),
	)

	cmd := sim.Command()
	assert.Equal(t, "counter", cmd.Name())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--runs", "2", "--steps-per-run", "2", "--format", "csv"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Equal(t, "run,step,x\n0,0,0\n0,1,1\n1,0,0\n1,1,1\n", out.String())
	assert.Equal(t, 4, steps)
}
