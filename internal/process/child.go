//go:build linux || windows

package process

import (
	"os"
	"os/exec"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"
)

// InitChildCleanup sets up killing of registered children when the host
// exits. Call DisposeChildCleanup before returning from main.
func InitChildCleanup() error {
	return child_process_manager.InitializeChildProcessManager()
}

// DisposeChildCleanup releases what InitChildCleanup created.
func DisposeChildCleanup() {
	_ = child_process_manager.DisposeChildProcessManager()
}

func configureChild(cmd *exec.Cmd) error {
	return child_process_manager.ConfigureCommand(cmd)
}

func registerChild(p *os.Process) error {
	return child_process_manager.AddChildProcess(p)
}
