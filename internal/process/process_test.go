package process

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startShell(t *testing.T, script string, opts Options) *Process {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	opts.ID = "test"
	p, err := Start("sh", []string{"-c", script}, opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Kill()
		<-p.Done()
	})
	return p
}

func TestStartRequiresLogger(t *testing.T) {
	if _, err := Start("sh", []string{"-c", "exit 0"}, Options{}); err == nil {
		t.Error("expected error without logger")
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start("/nonexistent/screenrec-ffmpeg", nil, Options{Logger: testLogger()})
	if err == nil {
		t.Fatal("expected start error")
	}
}

func TestQuitCommandEndsProcess(t *testing.T) {
	p := startShell(t, `read -r cmd; [ "$cmd" = "q" ] && exit 0; exit 3`, Options{})

	res := p.Stop(2*time.Second, time.Second)
	if !res.Exited || res.Forced {
		t.Fatalf("Stop() = %+v, want graceful exit", res)
	}
	if res.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
}

func TestStopForcesKillWhenQuitIgnored(t *testing.T) {
	p := startShell(t, `exec sleep 30`, Options{})

	start := time.Now()
	res := p.Stop(100*time.Millisecond, 2*time.Second)
	if !res.Exited || !res.Forced {
		t.Fatalf("Stop() = %+v, want forced exit", res)
	}
	if res.ExitCode == 0 {
		t.Error("killed process should not report exit code 0")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop took %v", elapsed)
	}
}

func TestRequestQuitAfterExit(t *testing.T) {
	p := startShell(t, `exit 0`, Options{})
	<-p.Done()

	_ = p.RequestQuit()
	if err := p.RequestQuit(); err == nil {
		t.Error("second RequestQuit should report closed stdin")
	}
}

func TestExitCodeAndStderr(t *testing.T) {
	p := startShell(t, `echo "[error] boom" >&2; exit 7`, Options{})

	code, err := p.WaitTimeout(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitTimeout: %v", err)
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
	if !strings.Contains(p.Stderr(), "boom") {
		t.Errorf("stderr = %q, want boom", p.Stderr())
	}
	if !p.Exited() {
		t.Error("Exited() = false after exit")
	}
}

func TestWaitTimeout(t *testing.T) {
	p := startShell(t, `exec sleep 30`, Options{})

	if _, err := p.WaitTimeout(50 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
	if p.Exited() {
		t.Error("process should still be running")
	}
}

func TestStdoutLinesAndLogParser(t *testing.T) {
	var mu sync.Mutex
	var stdout []string
	var parsed []string

	p := startShell(t, `printf 'frame=1\nprogress=continue\r'; echo "[warning] careful" >&2; exit 0`, Options{
		OnStdoutLine: func(line string) {
			mu.Lock()
			defer mu.Unlock()
			stdout = append(stdout, line)
		},
		LogParser: func(line string) (slog.Level, string) {
			mu.Lock()
			defer mu.Unlock()
			parsed = append(parsed, line)
			return slog.LevelWarn, line
		},
	})
	<-p.Done()

	mu.Lock()
	defer mu.Unlock()
	if len(stdout) != 2 || stdout[0] != "frame=1" || stdout[1] != "progress=continue" {
		t.Errorf("stdout lines = %q", stdout)
	}
	if len(parsed) != 1 || parsed[0] != "[warning] careful" {
		t.Errorf("parsed stderr lines = %q", parsed)
	}
}

func TestTailBufferLimit(t *testing.T) {
	b := newTailBuffer(4)
	_, _ = b.Write([]byte("abcdef"))
	_, _ = b.Write([]byte("gh"))
	if got := b.String(); got != "efgh" {
		t.Errorf("tail = %q, want efgh", got)
	}
}

func TestRun(t *testing.T) {
	res, err := Run(context.Background(), "sh", []string{"-c", `echo out; echo err >&2; exit 4`}, 2*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 4 || res.TimedOut {
		t.Errorf("result = %+v", res)
	}
	if strings.TrimSpace(string(res.Stdout)) != "out" || strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("output = %q / %q", res.Stdout, res.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	start := time.Now()
	res, err := Run(context.Background(), "sh", []string{"-c", "exec sleep 30"}, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Errorf("TimedOut = false, result %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %v after timeout", elapsed)
	}
}

func TestRunMissingBinary(t *testing.T) {
	if _, err := Run(context.Background(), "/nonexistent/screenrec-ffprobe", nil, time.Second); err == nil {
		t.Error("expected start error")
	}
}

func TestChildCleanupLifecycle(t *testing.T) {
	if err := InitChildCleanup(); err != nil {
		t.Fatalf("InitChildCleanup: %v", err)
	}
	defer DisposeChildCleanup()

	res, err := Run(context.Background(), "sh", []string{"-c", "exit 0"}, 2*time.Second)
	if err != nil || res.ExitCode != 0 {
		t.Errorf("Run after init = %+v, %v", res, err)
	}
}
