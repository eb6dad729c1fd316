package ports

import (
	"context"

	"github.com/aretw0/solsim/pkg/domain"
)

// System is the capability every simulated system exposes. The engine
// branches on ProcessBacked, never on concrete types:
//
//   - false: the system must implement Stepper and runs synchronously.
//   - true: the system must implement ProcessSystem; its calls may block on
//     an external process and receive the run's context.
type System interface {
	ProcessBacked() bool
}

// Stepper is the synchronous contract of a plain system.
type Stepper interface {
	// InitialStep produces the first state of a run.
	InitialStep() (domain.State, error)
	// Step produces the updates for the next state given the current state
	// and every state recorded so far in this run. state is a copy; history
	// must not be modified.
	Step(state domain.State, history domain.History) (domain.State, error)
}

// Lifecycle hooks of a process-backed system.
type Lifecycle interface {
	// Setup starts or attaches to the external process and its client.
	// It is called once per run and must be idempotent.
	Setup(ctx context.Context) error
	// Teardown stops the external process. It runs after every run, even a
	// failed one, and must be idempotent.
	Teardown(ctx context.Context) error
	// Cleanup releases client and workspace resources once all runs end.
	Cleanup(ctx context.Context) error
}

// ProcessSystem is the contract of a process-backed system.
type ProcessSystem interface {
	Lifecycle
	InitialStep(ctx context.Context) (domain.State, error)
	Step(ctx context.Context, state domain.State, history domain.History) (domain.State, error)
}

// StepFunc adapts plain functions to a System.
type StepFunc struct {
	Initial func() (domain.State, error)
	Next    func(state domain.State, history domain.History) (domain.State, error)
}

// ProcessBacked is always false for function systems.
func (f StepFunc) ProcessBacked() bool { return false }

// InitialStep calls Initial, yielding an empty state when unset.
func (f StepFunc) InitialStep() (domain.State, error) {
	if f.Initial == nil {
		return domain.State{}, nil
	}
	return f.Initial()
}

// Step calls Next, yielding no updates when unset.
func (f StepFunc) Step(state domain.State, history domain.History) (domain.State, error) {
	if f.Next == nil {
		return domain.State{}, nil
	}
	return f.Next(state, history)
}
