//go:build !unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func detach(*exec.Cmd) {}

func signalPID(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

func gone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
