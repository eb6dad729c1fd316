//go:build linux

package localnet_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/internal/runtime"
	"github.com/aretw0/solsim/pkg/adapters/localnet"
	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/domain"
)

// vaultWatcher records the balance of one token account at every step.
type vaultWatcher struct {
	*localnet.Backend
	pids []int
}

func (v *vaultWatcher) InitialStep(ctx context.Context) (domain.State, error) {
	return v.Step(ctx, nil, nil)
}

func (v *vaultWatcher) Step(ctx context.Context, _ domain.State, _ domain.History) (domain.State, error) {
	v.pids = append(v.pids, v.Handle().PID)
	balance, err := v.TokenBalance(ctx, "vault", domain.CommitmentConfirmed)
	if err != nil {
		return nil, err
	}
	return domain.State{"vault": balance}, nil
}

func TestBackend_EngineRunsFakeValidator(t *testing.T) {
	srv := balanceNode(t)

	cfg := process.DefaultConfig()
	cfg.ProcessName = ""
	cfg.Command = []string{"sh", "-c", `echo "00:00:01 | Processed Slot: 1"; exec sleep 30`}
	cfg.PollInterval = 10 * time.Millisecond
	cfg.TerminateTimeout = time.Second

	sys := &vaultWatcher{Backend: localnet.New(cfg,
		localnet.WithEndpoint(srv.URL),
		localnet.WithHTTPClient(srv.Client()),
	)}
	engine := runtime.NewEngine(sys, domain.NewWatchlist("vault"))

	table, err := engine.Run(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []any{42.5, 42.5, 42.5, 42.5}, table.Column("vault"))

	// one validator per run, and none left once the engine returns
	require.Len(t, sys.pids, 4)
	assert.Equal(t, sys.pids[0], sys.pids[1])
	assert.NotEqual(t, sys.pids[1], sys.pids[2])
	assert.Nil(t, sys.Handle())
	assert.Nil(t, sys.Client())

	snapshot, err := process.NewProcTable().Snapshot()
	require.NoError(t, err)
	for _, p := range snapshot {
		if p.PID == sys.pids[0] || p.PID == sys.pids[2] {
			assert.False(t, p.Live(), "validator %d still running", p.PID)
		}
	}
}
