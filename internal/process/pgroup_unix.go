//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// detachGroup starts the child in its own process group so a terminal
// Ctrl-C reaches only the host, which then sends the quit command.
func detachGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
