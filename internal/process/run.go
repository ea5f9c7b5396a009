package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// RunResult is the outcome of a short-lived command.
type RunResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   string
	// TimedOut is set when the command was killed for exceeding its timeout.
	TimedOut bool
}

// Run executes path to completion, killing it after timeout. The error is
// non-nil only when the command could not be started or ctx was cancelled;
// a non-zero exit or a timeout is reported in the result.
func Run(ctx context.Context, path string, args []string, timeout time.Duration) (RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = defaultWaitDelay

	// Best effort: the command still runs without parent-death cleanup.
	_ = configureChild(cmd)

	if err := cmd.Start(); err != nil {
		return RunResult{}, fmt.Errorf("start %s: %w", path, err)
	}
	_ = registerChild(cmd.Process)

	waitErr := cmd.Wait()
	res := RunResult{
		ExitCode: exitCodeFromError(cmd, waitErr),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.String(),
	}

	if runErr := runCtx.Err(); runErr != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if errors.Is(runErr, context.DeadlineExceeded) {
			res.TimedOut = true
		}
	}
	return res, nil
}
