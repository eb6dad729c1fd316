package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Termination phases reported to the termination hook.
const (
	PhaseGraceful = "graceful"
	PhaseForced   = "forced"
	PhaseFailed   = "failed"
)

const exitPoll = 50 * time.Millisecond

// Supervisor owns the lifecycle of one external process tree: spawn,
// readiness polling, and graceful-then-forceful termination.
type Supervisor struct {
	cfg    Config
	table  ProcTable
	logger *slog.Logger

	onTerminate  func(phase string)
	readLastLine func(path string) (string, error)
}

// Option configures the Supervisor.
type Option func(*Supervisor)

// WithLogger sets the supervisor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProcTable replaces the procfs process table.
func WithProcTable(table ProcTable) Option {
	return func(s *Supervisor) {
		if table != nil {
			s.table = table
		}
	}
}

// WithTerminationHook is called with the phase that ended each Terminate.
func WithTerminationHook(fn func(phase string)) Option {
	return func(s *Supervisor) {
		s.onTerminate = fn
	}
}

// NewSupervisor creates a supervisor for the configured process.
func NewSupervisor(cfg Config, opts ...Option) *Supervisor {
	s := &Supervisor{
		cfg:          cfg,
		table:        NewProcTable(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		readLastLine: readLastLine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the supervisor configuration.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// KillStale forcefully kills every process matching the configured process
// name, left behind by an earlier session that did not shut down cleanly.
func (s *Supervisor) KillStale(ctx context.Context) error {
	if s.cfg.ProcessName == "" {
		return nil
	}
	stale, err := s.findByName(s.cfg.ProcessName)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}

	s.logger.Warn("killing stale processes", "name", s.cfg.ProcessName, "pids", stale)
	for _, pid := range stale {
		if err := s.signal(pid, syscall.SIGKILL); err != nil {
			return err
		}
	}
	survivors, err := s.awaitExit(ctx, stale, s.cfg.TerminateTimeout)
	if err != nil {
		return err
	}
	if len(survivors) > 0 {
		return &TerminationFailedError{Survivors: survivors}
	}
	return nil
}

// Start kills stale instances, then spawns command in dir with stdout going
// to a fresh temporary log file and stderr discarded. The process keeps
// running independently of ctx; only Terminate stops it.
func (s *Supervisor) Start(ctx context.Context, command []string, dir string) (*Handle, error) {
	if len(command) == 0 {
		return nil, &SupervisorError{Op: "start", Err: errors.New("empty command")}
	}
	if err := s.KillStale(ctx); err != nil {
		return nil, err
	}

	logFile, err := os.CreateTemp("", "solsim-process-*.log")
	if err != nil {
		return nil, &SupervisorError{Op: "start", Err: fmt.Errorf("create log file: %w", err)}
	}
	// the child keeps its own descriptor
	defer logFile.Close()

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = nil
	if len(s.cfg.Env) > 0 {
		env := cmd.Environ()
		for k, v := range s.cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	detach(cmd)

	if err := cmd.Start(); err != nil {
		_ = os.Remove(logFile.Name())
		return nil, &SupervisorError{Op: "start", Err: fmt.Errorf("%s: %w", strings.Join(command, " "), err)}
	}

	h := &Handle{
		ID:      uuid.NewString(),
		PID:     cmd.Process.Pid,
		LogPath: logFile.Name(),
		Started: time.Now(),
		cmd:     cmd,
		done:    make(chan struct{}),
		table:   s.table,
	}
	go h.reap()

	s.logger.Info("process started", "pid", h.PID, "command", strings.Join(command, " "), "log", h.LogPath)
	return h, nil
}

// WaitUntilReady polls the last line of the handle's log until it contains
// the readiness marker. It fails with ErrStartupTimeout once the startup
// timeout elapses and with ErrExitedBeforeReady if the process dies first.
// Adopted handles have no log and are taken as ready.
func (s *Supervisor) WaitUntilReady(ctx context.Context, h *Handle) error {
	if h.Terminated() {
		return ErrHandleTerminated
	}
	if h.LogPath == "" {
		return nil
	}

	waitCtx := ctx
	if s.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.cfg.StartupTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		line, err := s.readLastLine(h.LogPath)
		if err != nil {
			return &SupervisorError{Op: "read_log", PID: h.PID, Err: err}
		}
		polls++
		if strings.Contains(line, s.cfg.ReadyMarker) {
			s.logger.Info("process ready", "pid", h.PID, "polls", polls, "elapsed", time.Since(h.Started))
			return nil
		}
		if h.Exited() {
			err := ErrExitedBeforeReady
			if h.exitErr != nil {
				err = fmt.Errorf("%w: %v", ErrExitedBeforeReady, h.exitErr)
			}
			return &SupervisorError{Op: "wait_ready", PID: h.PID, Err: err}
		}
		s.logger.Debug("waiting for readiness marker", "pid", h.PID, "last_line", line)

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &SupervisorError{Op: "wait_ready", PID: h.PID, Err: fmt.Errorf("%w after %s", ErrStartupTimeout, s.cfg.StartupTimeout)}
		case <-h.Done():
		case <-ticker.C:
		}
	}
}

// Terminate stops the process tree rooted at the handle. For spawned
// handles the tree includes the whole process group. Every member gets
// SIGTERM, descendants before their parents. Processes still alive after
// timeout get SIGKILL, and any still alive after a second timeout are
// reported in a *TerminationFailedError. Signals to processes that already
// exited are ignored. The log file is removed.
func (s *Supervisor) Terminate(ctx context.Context, h *Handle, timeout time.Duration) (err error) {
	if !h.terminated.CompareAndSwap(false, true) {
		return ErrHandleTerminated
	}
	if timeout <= 0 {
		timeout = s.cfg.TerminateTimeout
	}
	defer func() {
		if h.LogPath != "" {
			if rerr := os.Remove(h.LogPath); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				s.logger.Warn("failed to remove process log", "path", h.LogPath, "error", rerr)
			}
		}
	}()

	snapshot, err := s.table.Snapshot()
	if err != nil {
		return &SupervisorError{Op: "list_tree", PID: h.PID, Err: err}
	}
	members := tree(snapshot, h.PID, h.group())
	if h.Exited() {
		members = members[:len(members)-1]
	}

	s.logger.Info("terminating process tree", "pid", h.PID, "members", members)
	for _, pid := range members {
		if err := s.signal(pid, syscall.SIGTERM); err != nil {
			return err
		}
	}
	survivors, err := s.awaitExit(ctx, members, timeout)
	if err != nil {
		return err
	}
	if len(survivors) == 0 {
		s.terminated(PhaseGraceful)
		return nil
	}

	s.logger.Warn("escalating to SIGKILL", "pid", h.PID, "survivors", survivors)
	for _, pid := range survivors {
		if err := s.signal(pid, syscall.SIGKILL); err != nil {
			return err
		}
	}
	survivors, err = s.awaitExit(ctx, survivors, timeout)
	if err != nil {
		return err
	}
	if len(survivors) > 0 {
		s.terminated(PhaseFailed)
		return &TerminationFailedError{PID: h.PID, Survivors: survivors}
	}
	s.terminated(PhaseForced)
	return nil
}

// Adopt wraps an already running process in a handle.
func (s *Supervisor) Adopt(pid int) (*Handle, error) {
	snapshot, err := s.table.Snapshot()
	if err != nil {
		return nil, &SupervisorError{Op: "adopt", PID: pid, Err: err}
	}
	if len(live(snapshot, []int{pid})) == 0 {
		return nil, &SupervisorError{Op: "adopt", PID: pid, Err: os.ErrProcessDone}
	}
	s.logger.Info("adopted running process", "pid", pid)
	return &Handle{ID: uuid.NewString(), PID: pid, Started: time.Now(), table: s.table}, nil
}

// Acquire is the single adopt-or-spawn decision point. A live external
// handle is used as is. Otherwise, with ReuseRunning set, a running process
// matching the configured name is adopted. Failing both, stale processes are
// killed and a new one is started and awaited; a process that never becomes
// ready is terminated before the error is returned.
func (s *Supervisor) Acquire(ctx context.Context, external *Handle) (*Handle, error) {
	if external != nil && !external.Terminated() {
		alive, err := external.Alive()
		if err != nil {
			return nil, err
		}
		if alive {
			return external, nil
		}
	}

	if s.cfg.ReuseRunning && s.cfg.ProcessName != "" {
		pids, err := s.findByName(s.cfg.ProcessName)
		if err != nil {
			return nil, err
		}
		if len(pids) > 0 {
			return s.Adopt(pids[0])
		}
	}

	h, err := s.Start(ctx, s.cfg.Command, s.cfg.Dir)
	if err != nil {
		return nil, err
	}
	if err := s.WaitUntilReady(ctx, h); err != nil {
		if terr := s.Terminate(context.WithoutCancel(ctx), h, s.cfg.TerminateTimeout); terr != nil {
			return nil, errors.Join(err, terr)
		}
		return nil, err
	}
	return h, nil
}

func (s *Supervisor) findByName(name string) ([]int, error) {
	snapshot, err := s.table.Snapshot()
	if err != nil {
		return nil, &SupervisorError{Op: "find", Err: err}
	}
	self := os.Getpid()
	var pids []int
	for _, p := range snapshot {
		if p.PID != self && p.Live() && p.Matches(name) {
			pids = append(pids, p.PID)
		}
	}
	return pids, nil
}

func (s *Supervisor) signal(pid int, sig syscall.Signal) error {
	err := s.table.Signal(pid, sig)
	if err == nil || gone(err) || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return &SupervisorError{Op: "signal " + sig.String(), PID: pid, Err: err}
}

// awaitExit polls until every pid has exited or timeout elapses, returning
// the ones still alive.
func (s *Supervisor) awaitExit(ctx context.Context, pids []int, timeout time.Duration) ([]int, error) {
	deadline := time.Now().Add(timeout)
	for {
		snapshot, err := s.table.Snapshot()
		if err != nil {
			return nil, &SupervisorError{Op: "probe", Err: err}
		}
		survivors := live(snapshot, pids)
		if len(survivors) == 0 || !time.Now().Before(deadline) {
			return survivors, nil
		}
		select {
		case <-ctx.Done():
			return survivors, ctx.Err()
		case <-time.After(min(exitPoll, time.Until(deadline))):
		}
	}
}

func (s *Supervisor) terminated(phase string) {
	if s.onTerminate != nil {
		s.onTerminate(phase)
	}
}
