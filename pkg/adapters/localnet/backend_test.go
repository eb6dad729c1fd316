package localnet_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/solsim/pkg/adapters/localnet"
	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/domain"
	"github.com/aretw0/solsim/pkg/ports"
)

var _ ports.Lifecycle = (*localnet.Backend)(nil)

type fakeSupervisor struct {
	acquired   int
	terminated []*process.Handle
	acquireErr error
	nextPID    int
}

func (s *fakeSupervisor) Acquire(_ context.Context, external *process.Handle) (*process.Handle, error) {
	s.acquired++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	if external != nil {
		return external, nil
	}
	s.nextPID++
	return &process.Handle{ID: "spawned", PID: 1000 + s.nextPID}, nil
}

func (s *fakeSupervisor) Terminate(_ context.Context, h *process.Handle, _ time.Duration) error {
	s.terminated = append(s.terminated, h)
	return nil
}

func balanceNode(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  map[string]any{"value": map[string]any{"uiAmount": 42.5}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBackend_SetupIsIdempotent(t *testing.T) {
	sup := &fakeSupervisor{}
	b := localnet.New(process.DefaultConfig(), localnet.WithSupervisor(sup))

	require.NoError(t, b.Setup(context.Background()))
	first := b.Handle()
	require.NoError(t, b.Setup(context.Background()))

	assert.Equal(t, 1, sup.acquired)
	assert.Same(t, first, b.Handle())
	assert.NotNil(t, b.Client())
	assert.True(t, b.ProcessBacked())
}

func TestBackend_TeardownTerminatesOwnedHandle(t *testing.T) {
	sup := &fakeSupervisor{}
	b := localnet.New(process.DefaultConfig(), localnet.WithSupervisor(sup))
	ctx := context.Background()

	require.NoError(t, b.Setup(ctx))
	h := b.Handle()
	require.NoError(t, b.Teardown(ctx))
	require.NoError(t, b.Teardown(ctx))

	assert.Equal(t, []*process.Handle{h}, sup.terminated)
	assert.Nil(t, b.Handle())

	// a new run gets a fresh handle
	require.NoError(t, b.Setup(ctx))
	assert.NotSame(t, h, b.Handle())
	assert.Equal(t, 2, sup.acquired)
}

func TestBackend_SuppliedHandleLeftRunning(t *testing.T) {
	sup := &fakeSupervisor{}
	external := &process.Handle{ID: "external", PID: 77}
	b := localnet.New(process.DefaultConfig(), localnet.WithSupervisor(sup), localnet.WithHandle(external))
	ctx := context.Background()

	require.NoError(t, b.Setup(ctx))
	assert.Same(t, external, b.Handle())
	require.NoError(t, b.Teardown(ctx))
	assert.Empty(t, sup.terminated)
}

func TestBackend_SetupFailure(t *testing.T) {
	boom := errors.New("no validator")
	b := localnet.New(process.DefaultConfig(), localnet.WithSupervisor(&fakeSupervisor{acquireErr: boom}))

	assert.ErrorIs(t, b.Setup(context.Background()), boom)
	assert.Nil(t, b.Handle())
	assert.NoError(t, b.Teardown(context.Background()))
}

func TestBackend_Workspace(t *testing.T) {
	sup := &fakeSupervisor{}
	b := localnet.New(process.DefaultConfig(),
		localnet.WithSupervisor(sup),
		localnet.WithWorkspace("../workspace/testdata/escrow"),
	)
	ctx := context.Background()

	require.NoError(t, b.Setup(ctx))
	ws := b.Workspace()
	require.NotNil(t, ws)
	assert.Contains(t, ws.Programs(), "escrow")

	require.NoError(t, b.Cleanup(ctx))
	require.NoError(t, b.Cleanup(ctx))
	assert.True(t, ws.Closed())
	assert.Nil(t, b.Workspace())
	assert.Nil(t, b.Client())
}

func TestBackend_WorkspaceMissing(t *testing.T) {
	b := localnet.New(process.DefaultConfig(),
		localnet.WithSupervisor(&fakeSupervisor{}),
		localnet.WithWorkspace(t.TempDir()),
	)
	assert.Error(t, b.Setup(context.Background()))
}

func TestBackend_TokenBalance(t *testing.T) {
	srv := balanceNode(t)
	b := localnet.New(process.DefaultConfig(),
		localnet.WithSupervisor(&fakeSupervisor{}),
		localnet.WithEndpoint(srv.URL),
		localnet.WithHTTPClient(srv.Client()),
	)
	ctx := context.Background()

	_, err := b.TokenBalance(ctx, "vault", domain.CommitmentConfirmed)
	assert.ErrorIs(t, err, localnet.ErrNotSetUp)

	require.NoError(t, b.Setup(ctx))
	balance, err := b.TokenBalance(ctx, "vault", "")
	require.NoError(t, err)
	assert.Equal(t, 42.5, balance)
}
