package ports

import (
	"context"
	"errors"

	"github.com/aretw0/solsim/pkg/results"
)

// ErrResultsNotFound is returned when an execution ID has no stored table.
var ErrResultsNotFound = errors.New("results not found")

// ResultStore persists finished result tables by execution ID.
// Only complete tables are stored; intermediate state is never persisted.
type ResultStore interface {
	// Save persists the table under the execution ID, replacing any previous one.
	Save(ctx context.Context, executionID string, table *results.Table) error

	// Load retrieves a table.
	// Returns ErrResultsNotFound if the execution does not exist.
	Load(ctx context.Context, executionID string) (*results.Table, error)

	// Delete removes a stored table.
	Delete(ctx context.Context, executionID string) error

	// List returns the stored execution IDs.
	List(ctx context.Context) ([]string, error)
}
