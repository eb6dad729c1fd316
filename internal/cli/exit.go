package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/domain"
)

// Exit codes.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitMissingQuantity = 2
	ExitSupervisor      = 3
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrMissingQuantity):
		return ExitMissingQuantity
	case errors.Is(err, process.ErrSupervisor),
		errors.Is(err, process.ErrTerminationFailed),
		errors.Is(err, process.ErrStartupTimeout):
		return ExitSupervisor
	default:
		return ExitFailure
	}
}

// Execute runs root and returns the exit code, printing any error.
func Execute(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}
