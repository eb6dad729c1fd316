//go:build unix

package process

import (
	"errors"
	"os/exec"
	"syscall"
)

// detach puts the child in its own process group so terminal signals aimed
// at the caller do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalPID(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

// gone reports a signal delivered to a process that already exited.
func gone(err error) bool {
	return errors.Is(err, syscall.ESRCH)
}
