//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

var terminateSignal os.Signal = unix.SIGTERM

// setProcAttr puts the child in its own process group so the whole tree can be signalled.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalProcess(cmd *exec.Cmd, sig os.Signal) error {
	sysSig, ok := sig.(syscall.Signal)
	if !ok {
		sysSig = unix.SIGKILL
	}

	pid := cmd.Process.Pid
	err := unix.Kill(-pid, sysSig)
	if errors.Is(err, unix.ESRCH) {
		// Group already gone; fall back to the leader in case it was reparented.
		err = unix.Kill(pid, sysSig)
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
	}
	return err
}
