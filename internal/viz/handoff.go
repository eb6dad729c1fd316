// Package viz hands finished result tables to a viewer: a separate process
// reading a Feather file, or the built-in HTTP viewer.
package viz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/aretw0/solsim/internal/config"
	"github.com/aretw0/solsim/pkg/ports"
	"github.com/aretw0/solsim/pkg/results"
)

// Handoff shows table in viewer and blocks until the viewer is done. An
// interrupt (SIGINT, SIGTERM) stops the viewer and is not an error.
func Handoff(ctx context.Context, table *results.Table, viewer ports.Viewer) error {
	sm := NewSignalManager(ctx)
	defer sm.Stop()

	err := viewer.Show(sm.Context(), table)
	if sm.Interrupted() {
		return nil
	}
	return err
}

// CommandViewer runs an external program with ResultsPathEnv pointing at a
// Feather copy of the table.
type CommandViewer struct {
	command   []string
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	waitDelay time.Duration
}

// CommandOption configures a CommandViewer.
type CommandOption func(*CommandViewer)

// WithOutput redirects the viewer's standard streams.
func WithOutput(stdout, stderr io.Writer) CommandOption {
	return func(v *CommandViewer) {
		v.stdout = stdout
		v.stderr = stderr
	}
}

// WithLogger sets the viewer logger.
func WithLogger(logger *slog.Logger) CommandOption {
	return func(v *CommandViewer) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewCommandViewer creates a viewer running command.
func NewCommandViewer(command []string, opts ...CommandOption) *CommandViewer {
	v := &CommandViewer{
		command:   command,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		waitDelay: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Show writes the Feather file, starts the viewer and waits for it to exit.
// When ctx ends first the viewer gets SIGTERM, then SIGKILL after a grace
// period. The file is removed afterwards.
func (v *CommandViewer) Show(ctx context.Context, table *results.Table) error {
	if len(v.command) == 0 {
		return errors.New("viewer command is empty")
	}
	path, err := WriteTemp(table)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, v.command[0], v.command[1:]...)
	cmd.Env = append(os.Environ(), config.ResultsPathEnv+"="+path)
	cmd.Stdout = v.stdout
	cmd.Stderr = v.stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = v.waitDelay

	v.logger.Info("starting viewer", "command", v.command, "results", path)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

// WriteTemp writes table to a new temporary Feather file and returns its path.
func WriteTemp(table *results.Table) (string, error) {
	f, err := os.CreateTemp("", "solsim-results-*.feather")
	if err != nil {
		return "", fmt.Errorf("create results file: %w", err)
	}
	if err := table.WriteFeather(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close results file: %w", err)
	}
	return f.Name(), nil
}

// ReadFile loads a Feather results file.
func ReadFile(path string) (*results.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()
	return results.ReadFeather(f)
}

// ReadFromEnv loads the table named by ResultsPathEnv.
func ReadFromEnv() (*results.Table, error) {
	path := os.Getenv(config.ResultsPathEnv)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", config.ResultsPathEnv)
	}
	return ReadFile(path)
}
