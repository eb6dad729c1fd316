package process

import (
	"os/exec"
	"sync/atomic"
	"time"
)

// Handle refers to one supervised process tree. A terminated handle is never
// reused; a fresh process needs a fresh handle.
type Handle struct {
	ID      string
	PID     int
	LogPath string
	Started time.Time

	cmd        *exec.Cmd
	done       chan struct{}
	exitErr    error
	table      ProcTable
	terminated atomic.Bool
}

// Spawned reports whether this supervisor started the process, as opposed
// to adopting a running one.
func (h *Handle) Spawned() bool {
	return h.cmd != nil
}

// Done is closed once a spawned process has been reaped. It is nil for
// adopted handles.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether a spawned process has exited.
func (h *Handle) Exited() bool {
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the error reported when reaping a spawned process.
func (h *Handle) ExitErr() error {
	if !h.Exited() {
		return nil
	}
	return h.exitErr
}

// Terminated reports whether Terminate was called on this handle.
func (h *Handle) Terminated() bool {
	return h.terminated.Load()
}

// Children returns the live descendants of the process, deepest first.
func (h *Handle) Children() ([]int, error) {
	snapshot, err := h.table.Snapshot()
	if err != nil {
		return nil, &SupervisorError{Op: "list_children", PID: h.PID, Err: err}
	}
	pids := tree(snapshot, h.PID, h.group())
	return pids[:len(pids)-1], nil
}

// Alive reports whether the root process is still running.
func (h *Handle) Alive() (bool, error) {
	if h.Exited() {
		return false, nil
	}
	snapshot, err := h.table.Snapshot()
	if err != nil {
		return false, &SupervisorError{Op: "probe", PID: h.PID, Err: err}
	}
	return len(live(snapshot, []int{h.PID})) == 1, nil
}

// group is the process group a spawned process leads, or zero.
func (h *Handle) group() int {
	if !h.Spawned() {
		return 0
	}
	return h.PID
}

// reap waits for the spawned process so it never lingers as a zombie.
func (h *Handle) reap() {
	h.exitErr = h.cmd.Wait()
	close(h.done)
}
