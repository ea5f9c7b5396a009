//go:build !linux && !windows

package process

import (
	"os"
	"os/exec"
)

// InitChildCleanup is a no-op here: the platform has neither a parent-death
// signal nor job objects.
func InitChildCleanup() error { return nil }

// DisposeChildCleanup is a no-op here.
func DisposeChildCleanup() {}

func configureChild(*exec.Cmd) error { return nil }

func registerChild(*os.Process) error { return nil }
