package process

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/prometheus/procfs"
)

// ProcInfo is one entry of a process table snapshot.
type ProcInfo struct {
	PID     int
	PPID    int
	PGID    int
	Name    string
	Cmdline []string
	State   string
}

// Live reports whether the process is still running. Zombies count as
// exited: they are only waiting to be reaped by their parent.
func (p ProcInfo) Live() bool {
	return p.State != "Z" && p.State != "X"
}

// Matches reports whether the process runs the named executable. The kernel
// truncates comm to 15 bytes, so the base of argv[0] is checked as well.
func (p ProcInfo) Matches(name string) bool {
	if name == "" {
		return false
	}
	if p.Name == name || (len(name) > 15 && p.Name == name[:15]) {
		return true
	}
	return len(p.Cmdline) > 0 && filepath.Base(p.Cmdline[0]) == name
}

// ProcTable enumerates and signals OS processes.
type ProcTable interface {
	Snapshot() ([]ProcInfo, error)
	Signal(pid int, sig syscall.Signal) error
}

// procfsTable reads /proc through prometheus/procfs.
type procfsTable struct {
	mount string
}

// NewProcTable returns the table backed by the default procfs mount.
func NewProcTable() ProcTable {
	return procfsTable{mount: procfs.DefaultMountPoint}
}

func (t procfsTable) Snapshot() ([]ProcInfo, error) {
	pfs, err := procfs.NewFS(t.mount)
	if err != nil {
		return nil, fmt.Errorf("open procfs: %w", err)
	}
	procs, err := pfs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	out := make([]ProcInfo, 0, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			if vanished(err) {
				continue
			}
			return nil, fmt.Errorf("stat pid %d: %w", p.PID, err)
		}
		// cmdline is empty for kernel threads and unreadable for some zombies
		cmdline, _ := p.CmdLine()
		out = append(out, ProcInfo{
			PID:     stat.PID,
			PPID:    stat.PPID,
			PGID:    stat.PGRP,
			Name:    stat.Comm,
			Cmdline: cmdline,
			State:   stat.State,
		})
	}
	return out, nil
}

func (procfsTable) Signal(pid int, sig syscall.Signal) error {
	return signalPID(pid, sig)
}

// vanished reports errors caused by a process exiting mid-enumeration.
func vanished(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ESRCH)
}

// tree returns root and its live descendants ordered deepest first, root
// last. With a non-zero group, live members of that process group are
// included too, so children reparented after their parent exited are still
// found.
func tree(snapshot []ProcInfo, root, group int) []int {
	children := map[int][]int{}
	for _, p := range snapshot {
		if p.PID != root && p.Live() {
			children[p.PPID] = append(children[p.PPID], p.PID)
		}
	}

	var order []int
	seen := map[int]bool{}
	var visit func(pid int)
	visit = func(pid int) {
		if seen[pid] {
			return
		}
		seen[pid] = true
		kids := children[pid]
		slices.Sort(kids)
		for _, c := range kids {
			visit(c)
		}
		order = append(order, pid)
	}
	if group != 0 {
		var members []int
		for _, p := range snapshot {
			if p.PID != root && p.PGID == group && p.Live() {
				members = append(members, p.PID)
			}
		}
		slices.Sort(members)
		for _, pid := range members {
			visit(pid)
		}
	}
	visit(root)
	return order
}

// live filters pids down to those present and running in the snapshot.
func live(snapshot []ProcInfo, pids []int) []int {
	running := make(map[int]bool, len(snapshot))
	for _, p := range snapshot {
		if p.Live() {
			running[p.PID] = true
		}
	}
	var out []int
	for _, pid := range pids {
		if running[pid] {
			out = append(out, pid)
		}
	}
	return out
}
