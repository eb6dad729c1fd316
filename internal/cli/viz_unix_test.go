//go:build unix

package cli_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/internal/cli"
	"github.com/aretw0/solsim/pkg/domain"
)

func TestRun_VizResultsHandsOffFile(t *testing.T) {
	t.Setenv("SOLSIM_VIZ_VIEWER", "env")

	out, _, err := execute(t, cli.Static(counter(), domain.NewWatchlist("x")), "run", "-q", "--viz-results")
	require.NoError(t, err)
	assert.Contains(t, out, "SOLSIM_RESULTS_PATH=")
	assert.Contains(t, out, ".feather")
}
