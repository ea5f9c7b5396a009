package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/smazurov/screenrec/internal/logging"
)

// ErrTimeout is returned when a process does not exit within the allowed time.
var ErrTimeout = errors.New("process did not exit before timeout")

const (
	defaultWaitDelay   = 2 * time.Second
	defaultStderrLimit = 64 * 1024
	quitCommand        = "q"
)

// LogParser maps a stderr line to a log level and the message to log.
type LogParser func(line string) (slog.Level, string)

// Options configures a spawned process.
type Options struct {
	ID string
	// Logger receives lifecycle messages. Required.
	Logger logging.Logger
	// OutputLogger receives stderr lines (nil = Logger).
	OutputLogger logging.Logger
	// LogParser extracts levels from stderr lines (nil = everything at info).
	LogParser LogParser
	// OnStdoutLine receives every stdout line (nil = stdout is discarded).
	OnStdoutLine func(line string)
	// WaitDelay bounds how long Wait blocks on output pipes held open
	// by grandchildren after the process itself exits.
	WaitDelay time.Duration
	// StderrLimit caps the retained stderr tail in bytes.
	StderrLimit int
}

// Process is a running child whose exit is observed in the background.
// stdin stays open so a quit command can be written to it.
type Process struct {
	id        string
	cmd       *exec.Cmd
	logger    logging.Logger
	outLogger logging.Logger
	logParser LogParser
	stderr    *tailBuffer
	startedAt time.Time

	stdinMu sync.Mutex
	stdin   io.WriteCloser

	done     chan struct{}
	exitCode int
	waitErr  error
}

// Start spawns path with args and returns once the process is running.
func Start(path string, args []string, opts Options) (*Process, error) {
	if opts.Logger == nil {
		return nil, errors.New("process: logger is required")
	}
	p := &Process{
		id:        opts.ID,
		logger:    opts.Logger,
		outLogger: opts.OutputLogger,
		logParser: opts.LogParser,
		stderr:    newTailBuffer(opts.StderrLimit),
		done:      make(chan struct{}),
	}
	if p.outLogger == nil {
		p.outLogger = p.logger
	}

	p.cmd = exec.Command(path, args...)
	p.cmd.WaitDelay = opts.WaitDelay
	if p.cmd.WaitDelay <= 0 {
		p.cmd.WaitDelay = defaultWaitDelay
	}

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	p.stdin = stdin

	if opts.OnStdoutLine != nil {
		p.cmd.Stdout = newLineWriter(opts.OnStdoutLine)
	} else {
		p.cmd.Stdout = io.Discard
	}
	p.cmd.Stderr = io.MultiWriter(p.stderr, newLineWriter(p.logOutput))

	detachGroup(p.cmd)
	if err := configureChild(p.cmd); err != nil {
		p.logger.Warn("Failed to configure child process cleanup", "error", err)
	}

	if err := p.cmd.Start(); err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("start %s: %w", path, err)
	}
	p.startedAt = time.Now()

	if err := registerChild(p.cmd.Process); err != nil {
		p.logger.Warn("Failed to register child process", "pid", p.cmd.Process.Pid, "error", err)
	}

	p.logger.Info("Process started", "id", p.id, "pid", p.cmd.Process.Pid, "path", path)

	go p.wait()
	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.exitCode = exitCodeFromError(p.cmd, err)
	p.waitErr = err
	if err != nil && p.exitCode == 1 && !isExitError(err) {
		p.logger.Warn("Process wait failed", "id", p.id, "error", err)
	}
	p.logger.Debug("Process exited", "id", p.id, "exit_code", p.exitCode)
	close(p.done)
}

// ID returns the identifier given in Options.
func (p *Process) ID() string { return p.id }

// PID returns the operating system process id.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// StartedAt returns when the process was spawned.
func (p *Process) StartedAt() time.Time { return p.startedAt }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit code. Only meaningful after Done is closed;
// a process terminated by a signal reports -1.
func (p *Process) ExitCode() int {
	<-p.done
	return p.exitCode
}

// Stderr returns the retained tail of standard error.
func (p *Process) Stderr() string {
	return p.stderr.String()
}

// RequestQuit writes the quit command to stdin and closes it. An error
// means the process already closed its input, usually because it exited.
func (p *Process) RequestQuit() error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	if p.stdin == nil {
		return os.ErrClosed
	}
	_, writeErr := io.WriteString(p.stdin, quitCommand)
	closeErr := p.stdin.Close()
	p.stdin = nil
	return errors.Join(writeErr, closeErr)
}

// Kill terminates the process immediately. Killing an exited process is not an error.
func (p *Process) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// WaitTimeout waits up to timeout for the process to exit.
func (p *Process) WaitTimeout(timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return p.exitCode, nil
	case <-timer.C:
		return 0, ErrTimeout
	}
}

// StopResult describes how a process ended under Stop.
type StopResult struct {
	ExitCode int
	// Forced is set when the process ignored the quit command and was killed.
	Forced bool
	// Exited is false when the process outlived the kill timeout as well.
	Exited bool
}

// Stop asks the process to quit, then kills it if it has not exited within
// graceful, then waits up to killTimeout more.
func (p *Process) Stop(graceful, killTimeout time.Duration) StopResult {
	if err := p.RequestQuit(); err != nil {
		p.logger.Debug("Quit request not delivered", "id", p.id, "error", err)
	}

	code, err := p.WaitTimeout(graceful)
	if err == nil {
		return StopResult{ExitCode: code, Exited: true}
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", graceful)
	if err := p.Kill(); err != nil {
		p.logger.Error("Failed to kill process", "id", p.id, "error", err)
	}

	code, err = p.WaitTimeout(killTimeout)
	if err != nil {
		p.logger.Error("Process did not exit after kill", "id", p.id, "timeout", killTimeout)
		return StopResult{Forced: true}
	}
	return StopResult{ExitCode: code, Forced: true, Exited: true}
}

func (p *Process) logOutput(line string) {
	if line == "" {
		return
	}
	level, msg := slog.LevelInfo, line
	if p.logParser != nil {
		level, msg = p.logParser(line)
	}

	switch {
	case level >= slog.LevelError:
		p.outLogger.Error(msg)
	case level >= slog.LevelWarn:
		p.outLogger.Warn(msg)
	case level < slog.LevelInfo:
		p.outLogger.Debug(msg)
	default:
		p.outLogger.Info(msg)
	}
}

// exitCodeFromError extracts the exit code from a Wait error.
// Returns 0 for nil, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(cmd *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 1
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay)
}
