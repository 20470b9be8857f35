//go:build windows

package process

import (
	"os"
	"os/exec"
)

var terminateSignal = os.Kill

func setProcAttr(_ *exec.Cmd) {}

// signalProcess kills the process; Windows has no portable terminate signal.
func signalProcess(cmd *exec.Cmd, _ os.Signal) error {
	return cmd.Process.Kill()
}
