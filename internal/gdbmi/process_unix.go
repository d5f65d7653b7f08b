//go:build !windows

package gdbmi

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr starts GDB in a new session so it leads its own process group.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// killProcessGroup kills GDB and everything in its process group.
func killProcessGroup(pid int, cmd *exec.Cmd) error {
	if pid > 0 {
		// ESRCH: the group is already gone
		if err := unix.Kill(-pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
			return err
		}
		return nil
	}
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
			return err
		}
	}
	return nil
}
