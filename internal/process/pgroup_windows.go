//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

// detachGroup starts the child in a new process group so console Ctrl-C
// events reach only the host, which then sends the quit command.
func detachGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= syscall.CREATE_NEW_PROCESS_GROUP
}
