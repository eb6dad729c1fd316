package ports

import (
	"context"

	"github.com/aretw0/solsim/pkg/results"
)

// Viewer receives the finished table for interactive exploration.
// Show blocks until the viewer exits or ctx is cancelled.
type Viewer interface {
	Show(ctx context.Context, table *results.Table) error
}
