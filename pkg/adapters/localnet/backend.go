// Package localnet is the reusable base of process-backed systems: it owns
// a local validator through the process supervisor, an RPC client and,
// optionally, an Anchor workspace.
package localnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/solsim/pkg/adapters/process"
	"github.com/aretw0/solsim/pkg/adapters/rpc"
	"github.com/aretw0/solsim/pkg/adapters/workspace"
	"github.com/aretw0/solsim/pkg/domain"
)

// ErrNotSetUp is returned by helpers used before Setup.
var ErrNotSetUp = errors.New("localnet backend is not set up")

// Supervisor is the part of process.Supervisor the backend drives.
type Supervisor interface {
	Acquire(ctx context.Context, external *process.Handle) (*process.Handle, error)
	Terminate(ctx context.Context, h *process.Handle, timeout time.Duration) error
}

// Backend implements the setup, teardown and cleanup of a process-backed
// system. Embed it and add InitialStep and Step.
type Backend struct {
	supervisor       Supervisor
	terminateTimeout time.Duration
	endpoint         string
	httpClient       *http.Client
	workspaceDir     string
	logger           *slog.Logger

	mu       sync.Mutex
	external *process.Handle
	handle   *process.Handle
	client   *rpc.Client
	ws       *workspace.Workspace
}

// Option configures the Backend.
type Option func(*Backend)

// WithSupervisor replaces the supervisor built from the process config.
func WithSupervisor(s Supervisor) Option {
	return func(b *Backend) {
		if s != nil {
			b.supervisor = s
		}
	}
}

// WithHandle supplies a running validator to adopt instead of spawning one.
// The backend never terminates a handle supplied this way.
func WithHandle(h *process.Handle) Option {
	return func(b *Backend) {
		b.external = h
	}
}

// WithEndpoint sets the RPC endpoint.
func WithEndpoint(url string) Option {
	return func(b *Backend) {
		b.endpoint = url
	}
}

// WithHTTPClient sets the HTTP client used by the RPC client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = hc
	}
}

// WithWorkspace loads the Anchor workspace at dir on setup.
func WithWorkspace(dir string) Option {
	return func(b *Backend) {
		b.workspaceDir = dir
	}
}

// WithLogger sets the backend logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a backend for the validator described by cfg.
func New(cfg process.Config, opts ...Option) *Backend {
	b := &Backend{
		terminateTimeout: cfg.TerminateTimeout,
		endpoint:         rpc.DefaultEndpoint,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.supervisor == nil {
		b.supervisor = process.NewSupervisor(cfg, process.WithLogger(b.logger))
	}
	return b
}

// ProcessBacked is always true.
func (b *Backend) ProcessBacked() bool { return true }

// Setup acquires the validator (adopting the supplied handle when it is
// alive), then opens the RPC client and workspace. Calling it again while
// set up is a no-op.
func (b *Backend) Setup(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handle == nil {
		h, err := b.supervisor.Acquire(ctx, b.external)
		if err != nil {
			return err
		}
		b.handle = h
		b.logger.Info("localnet ready", "pid", h.PID, "adopted", h == b.external)
	}
	if b.client == nil {
		var opts []rpc.Option
		if b.httpClient != nil {
			opts = append(opts, rpc.WithHTTPClient(b.httpClient))
		}
		b.client = rpc.New(b.endpoint, append(opts, rpc.WithLogger(b.logger))...)
	}
	if b.ws == nil && b.workspaceDir != "" {
		ws, err := workspace.Load(b.workspaceDir)
		if err != nil {
			return fmt.Errorf("load workspace: %w", err)
		}
		b.ws = ws
	}
	return nil
}

// Teardown stops the validator unless it was supplied by the caller. The
// handle is dropped either way so the next Setup acquires a fresh one.
func (b *Backend) Teardown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.handle
	if h == nil {
		return nil
	}
	b.handle = nil
	if h == b.external {
		b.logger.Debug("leaving supplied validator running", "pid", h.PID)
		return nil
	}
	if err := b.supervisor.Terminate(ctx, h, b.terminateTimeout); err != nil && !errors.Is(err, process.ErrHandleTerminated) {
		return err
	}
	b.logger.Info("localnet stopped", "pid", h.PID)
	return nil
}

// Cleanup closes the RPC client and the workspace. It is idempotent.
func (b *Backend) Cleanup(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.client != nil {
		errs = append(errs, b.client.Close())
		b.client = nil
	}
	if b.ws != nil {
		errs = append(errs, b.ws.Close())
		b.ws = nil
	}
	return errors.Join(errs...)
}

// Handle returns the validator handle of the current run, nil outside one.
func (b *Backend) Handle() *process.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

// Client returns the RPC client, nil before Setup.
func (b *Backend) Client() *rpc.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.client
}

// Workspace returns the loaded workspace, nil when none is configured.
func (b *Backend) Workspace() *workspace.Workspace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ws
}

// TokenBalance returns the UI amount of a token account.
func (b *Backend) TokenBalance(ctx context.Context, account string, commitment domain.Commitment) (float64, error) {
	client := b.Client()
	if client == nil {
		return 0, ErrNotSetUp
	}
	return client.GetTokenAccountBalance(ctx, account, commitment)
}
