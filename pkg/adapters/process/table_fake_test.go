package process

import (
	"maps"
	"slices"
	"sync"
	"syscall"
)

type signalCall struct {
	PID int
	Sig syscall.Signal
}

type fakeProc struct {
	info ProcInfo
	// dies lists the signals that make the process exit.
	dies []syscall.Signal
	// signalErr is returned instead of delivering the signal.
	signalErr error
}

// fakeTable is an in-memory process table recording every signal.
type fakeTable struct {
	mu      sync.Mutex
	procs   map[int]*fakeProc
	signals []signalCall
}

func newFakeTable(procs ...*fakeProc) *fakeTable {
	t := &fakeTable{procs: map[int]*fakeProc{}}
	for _, p := range procs {
		if p.info.State == "" {
			p.info.State = "S"
		}
		t.procs[p.info.PID] = p
	}
	return t
}

func proc(pid, ppid int, name string, dies ...syscall.Signal) *fakeProc {
	return &fakeProc{info: ProcInfo{PID: pid, PPID: ppid, Name: name}, dies: dies}
}

func (t *fakeTable) Snapshot() ([]ProcInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ProcInfo, 0, len(t.procs))
	for _, pid := range slices.Sorted(maps.Keys(t.procs)) {
		out = append(out, t.procs[pid].info)
	}
	return out, nil
}

func (t *fakeTable) Signal(pid int, sig syscall.Signal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signals = append(t.signals, signalCall{PID: pid, Sig: sig})
	p, ok := t.procs[pid]
	if !ok {
		return syscall.ESRCH
	}
	if p.signalErr != nil {
		return p.signalErr
	}
	if slices.Contains(p.dies, sig) {
		delete(t.procs, pid)
	}
	return nil
}

func (t *fakeTable) sent(sig syscall.Signal) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pids []int
	for _, s := range t.signals {
		if s.Sig == sig {
			pids = append(pids, s.PID)
		}
	}
	return pids
}

func (t *fakeTable) has(pid int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.procs[pid]
	return ok
}
