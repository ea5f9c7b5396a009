package recorder

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smazurov/screenrec/internal/capture"
	"github.com/smazurov/screenrec/internal/encoders"
	"github.com/smazurov/screenrec/internal/events"
)

// Fake ffmpeg bodies. $last is the output path.
const (
	preamble = "for last; do :; done\n"

	// Writes the file, then exits 0 once "q" arrives on stdin.
	ffmpegGraceful = preamble + `: > "$last"
read -r cmd
[ "$cmd" = "q" ] && exit 0
exit 9
`
	// Writes the file and never reads stdin.
	ffmpegIgnoresQuit = preamble + `: > "$last"
exec sleep 30
`
	ffmpegNoOutput = preamble + `read -r cmd
exit 0
`
	ffmpegBadExit = preamble + `: > "$last"
read -r cmd
exit 2
`
	ffmpegDiesLater = preamble + `: > "$last"
sleep 0.3
exit 3
`
	ffmpegFinishesEarly = preamble + `: > "$last"
sleep 0.3
exit 0
`
	ffmpegProgress = preamble + `: > "$last"
printf 'frame=120\nfps=59.94\ndrop_frames=1\ndup_frames=3\ntotal_size=4096\nspeed=1.01x\nprogress=continue\n'
read -r cmd
exit 0
`
	ffmpegRejectsWindow = preamble + `case "$*" in
*title=Missing*) echo "Can't find window 'Missing'" >&2; exit 1;;
esac
: > "$last"
read -r cmd
exit 0
`

	ffprobeJSON = `cat <<'EOF'
{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac"},
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "avg_frame_rate": "60000/1000", "r_frame_rate": "60/1", "bit_rate": "8000000", "pix_fmt": "yuv420p"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "2.000000", "size": "1048576"}
}
EOF
`
)

var testScreen = capture.Screen{Bounds: capture.Bounds{Width: 1921, Height: 1081}}

type stubBinaries struct {
	ffmpeg  string
	ffprobe string
	// gate blocks FFmpeg until closed.
	gate  chan struct{}
	calls atomic.Int32
}

func (b *stubBinaries) FFmpeg() (string, bool) {
	b.calls.Add(1)
	if b.gate != nil {
		<-b.gate
	}
	return b.ffmpeg, b.ffmpeg != ""
}

func (b *stubBinaries) FFprobe() (string, bool) {
	return b.ffprobe, b.ffprobe != ""
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

type harness struct {
	rec  *Recorder
	bins *stubBinaries
	dir  string
}

func newHarness(t *testing.T, ffmpegBody string, mutate ...func(*Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	bins := &stubBinaries{
		ffmpeg:  writeScript(t, dir, "ffmpeg", ffmpegBody),
		ffprobe: writeScript(t, dir, "ffprobe", ffprobeJSON),
	}
	cfg := Config{
		Binaries:      bins,
		Selector:      encoders.Fixed(encoders.Software),
		GOOS:          "windows",
		RecordingsDir: filepath.Join(dir, "recordings"),
		Logger:        quietLogger(),
		FFmpegLogger:  quietLogger(),
		StartupGrace:  100 * time.Millisecond,
		GracefulStop:  2 * time.Second,
		KillWait:      2 * time.Second,
		ProbeTimeout:  2 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	rec := New(cfg)
	t.Cleanup(func() {
		_ = rec.Shutdown(context.Background())
	})
	return &harness{rec: rec, bins: bins, dir: dir}
}

func (h *harness) start(t *testing.T) StartResult {
	t.Helper()
	return h.rec.Start(context.Background(), StartOptions{
		FPS:        30,
		OutputPath: filepath.Join(h.dir, "out", "take.mp4"),
		Target:     testScreen,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartStopSuccess(t *testing.T) {
	h := newHarness(t, ffmpegGraceful)

	res := h.start(t)
	if !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	if res.Backend != Backend || res.Encoder != encoders.Software {
		t.Errorf("backend/encoder = %s/%s", res.Backend, res.Encoder)
	}
	if res.FFmpegPath != h.bins.ffmpeg || res.FFprobePath != h.bins.ffprobe {
		t.Errorf("binary paths = %s, %s", res.FFmpegPath, res.FFprobePath)
	}
	if !h.rec.IsRecording() {
		t.Error("IsRecording = false after successful start")
	}

	st := h.rec.Status()
	if st.State != StateRecording || st.FPS != 30 || st.Target != "screen" || st.PID == 0 {
		t.Errorf("unexpected status %+v", st)
	}

	stop := h.rec.Stop(context.Background())
	if !stop.Success {
		t.Fatalf("Stop failed: %s", stop.Message)
	}
	if stop.Forced {
		t.Error("graceful stop reported forced")
	}
	if stop.Path != res.OutputPath {
		t.Errorf("Path = %q, want %q", stop.Path, res.OutputPath)
	}
	if stop.Probe == nil || stop.Probe.Video.Codec == nil || *stop.Probe.Video.Codec != "h264" {
		t.Fatalf("probe not populated: %+v", stop.Probe)
	}
	if fps := stop.Probe.Video.AvgFrameRate; fps == nil || *fps != 60 {
		t.Errorf("AvgFrameRate = %v, want 60", fps)
	}
	if h.rec.IsRecording() || h.rec.Status().State != StateIdle {
		t.Error("recorder not idle after stop")
	}
}

func TestStartGeneratesOutputPath(t *testing.T) {
	h := newHarness(t, ffmpegGraceful)

	res := h.rec.Start(context.Background(), StartOptions{Target: testScreen})
	if !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	dir, name := filepath.Split(res.OutputPath)
	if filepath.Clean(dir) != h.rec.RecordingsDir() {
		t.Errorf("output dir = %q, want %q", dir, h.rec.RecordingsDir())
	}
	if !strings.HasPrefix(name, "recording-") || filepath.Ext(name) != ".mp4" {
		t.Errorf("generated name = %q", name)
	}
	if st := h.rec.Status(); st.FPS != 60 {
		t.Errorf("FPS = %d, want default 60", st.FPS)
	}
}

// stopFailures reads the stop failure counter for reason from the default registry.
func stopFailures(t *testing.T, reason string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "screenrec_recorder_failures_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == "stop" && labels["reason"] == reason {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestStopWithoutSession(t *testing.T) {
	bus := events.New()
	var published atomic.Int32
	defer bus.Subscribe(func(events.RecordingFailedEvent) { published.Add(1) })()
	defer bus.Subscribe(func(events.RecordingStateChangedEvent) { published.Add(1) })()

	h := newHarness(t, ffmpegGraceful, func(c *Config) { c.Bus = bus })
	before := stopFailures(t, ReasonNoSession)

	for i := 0; i < 3; i++ {
		res := h.rec.Stop(context.Background())
		if res.Success || res.Message != MsgNoSession || res.Reason != ReasonNoSession {
			t.Errorf("call %d: got %+v", i, res)
		}
	}
	if h.rec.Status().State != StateIdle {
		t.Error("state changed by rejected stop")
	}
	if got := stopFailures(t, ReasonNoSession); got != before {
		t.Errorf("no_session failures = %v, want unchanged %v", got, before)
	}
	time.Sleep(50 * time.Millisecond)
	if n := published.Load(); n != 0 {
		t.Errorf("rejected stop published %d events", n)
	}
}

func TestCleanExitClearsSession(t *testing.T) {
	bus := events.New()
	exited := make(chan events.RecordingExitedEvent, 4)
	defer bus.Subscribe(func(e events.RecordingExitedEvent) { exited <- e })()

	h := newHarness(t, ffmpegFinishesEarly, func(c *Config) { c.Bus = bus })

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	waitFor(t, "session to clear", func() bool { return !h.rec.IsRecording() })

	select {
	case e := <-exited:
		if e.ExitCode != 0 {
			t.Errorf("ExitCode = %d, want 0", e.ExitCode)
		}
	case <-time.After(2 * time.Second):
		t.Error("no exit event")
	}

	res := h.rec.Stop(context.Background())
	if res.Success || res.Reason != ReasonNoSession {
		t.Errorf("stop after ffmpeg finished on its own: %+v", res)
	}
	if res := h.start(t); !res.Success {
		t.Errorf("start after clean exit rejected: %s", res.Message)
	}
}

func TestStopAfterExitBeforeSessionCleared(t *testing.T) {
	h := newHarness(t, ffmpegFinishesEarly)

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	// Stop races the watcher here; either path must report no live session.
	time.Sleep(600 * time.Millisecond)
	res := h.rec.Stop(context.Background())
	if res.Success || res.Message != MsgNoSession {
		t.Errorf("Stop = %+v, want no active session", res)
	}
	if h.rec.IsRecording() || h.rec.Status().State != StateIdle {
		t.Error("recorder not idle")
	}
}

func TestStartEarlyExit(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		expect string
	}{
		{"stderr is the message", "echo 'Could not find video device' >&2\nexit 1\n", "Could not find video device"},
		{"clean exit is still a failure", "exit 0\n", "FFmpeg exited early with code 0."},
		{"silent failure", "exit 4\n", "FFmpeg exited early with code 4."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.body)
			res := h.start(t)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Message != tt.expect {
				t.Errorf("Message = %q, want %q", res.Message, tt.expect)
			}
			if res.Reason != ReasonEarlyExit {
				t.Errorf("Reason = %q", res.Reason)
			}
			if h.rec.IsRecording() || h.rec.Status().State != StateIdle {
				t.Error("recorder not idle after failed start")
			}
		})
	}
}

func TestStartResolutionFailure(t *testing.T) {
	h := newHarness(t, ffmpegGraceful)

	h.bins.ffprobe = ""
	if res := h.start(t); res.Message != MsgFFprobeNotFound || res.Reason != ReasonResolution {
		t.Errorf("missing ffprobe: %+v", res)
	}

	h.bins.ffmpeg = ""
	if res := h.start(t); res.Message != MsgFFmpegNotFound {
		t.Errorf("missing ffmpeg: %+v", res)
	}
	if h.rec.Status().State != StateIdle {
		t.Error("state not released after resolution failure")
	}
}

func TestStartUnsupportedTarget(t *testing.T) {
	h := newHarness(t, ffmpegGraceful, func(c *Config) { c.GOOS = "linux" })

	res := h.start(t)
	if res.Success || res.Reason != ReasonCaptureArgs {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(res.Message, "unsupported recording target") {
		t.Errorf("Message = %q", res.Message)
	}
	if _, err := os.Stat(filepath.Join(h.dir, "out")); !os.IsNotExist(err) {
		t.Error("output directory created for rejected target")
	}
}

func TestConcurrentStartRejected(t *testing.T) {
	h := newHarness(t, ffmpegGraceful)
	h.bins.gate = make(chan struct{})

	first := make(chan StartResult, 1)
	go func() { first <- h.start(t) }()

	waitFor(t, "first start to resolve binaries", func() bool { return h.bins.calls.Load() == 1 })

	second := h.start(t)
	if second.Success || second.Message != MsgAlreadyRecording || second.Reason != ReasonConflict {
		t.Errorf("second start: %+v", second)
	}
	if stop := h.rec.Stop(context.Background()); stop.Message != MsgNoSession {
		t.Errorf("stop during start: %+v", stop)
	}

	close(h.bins.gate)
	if res := <-first; !res.Success {
		t.Fatalf("first start failed: %s", res.Message)
	}
	if n := h.bins.calls.Load(); n != 1 {
		t.Errorf("binaries resolved %d times, want 1", n)
	}

	if res := h.start(t); res.Message != MsgAlreadyRecording {
		t.Errorf("start while recording: %+v", res)
	}
}

func TestUnexpectedExitClearsSession(t *testing.T) {
	bus := events.New()
	exited := make(chan events.RecordingExitedEvent, 4)
	unsubscribe := bus.Subscribe(func(e events.RecordingExitedEvent) { exited <- e })
	defer unsubscribe()

	h := newHarness(t, ffmpegDiesLater, func(c *Config) { c.Bus = bus })

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	waitFor(t, "session to clear", func() bool { return !h.rec.IsRecording() })

	select {
	case e := <-exited:
		if e.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", e.ExitCode)
		}
	case <-time.After(2 * time.Second):
		t.Error("no exit event")
	}

	if res := h.rec.Stop(context.Background()); res.Success || res.Message != MsgNoSession {
		t.Errorf("stop after crash: %+v", res)
	}
	if res := h.start(t); !res.Success {
		t.Errorf("start after crash rejected: %s", res.Message)
	}
}

func TestStopForcesKillWhenQuitIgnored(t *testing.T) {
	h := newHarness(t, ffmpegIgnoresQuit, func(c *Config) { c.GracefulStop = 200 * time.Millisecond })

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}

	begin := time.Now()
	res := h.rec.Stop(context.Background())
	if !res.Success {
		t.Fatalf("Stop failed: %s", res.Message)
	}
	if !res.Forced {
		t.Error("expected forced stop")
	}
	if res.Path == "" || res.Probe == nil {
		t.Errorf("path/probe missing: %+v", res)
	}
	if elapsed := time.Since(begin); elapsed > 3*time.Second {
		t.Errorf("stop took %v", elapsed)
	}
}

func TestStopMissingOutput(t *testing.T) {
	h := newHarness(t, ffmpegNoOutput)

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	res := h.rec.Stop(context.Background())
	if res.Success || res.Message != MsgNoOutput || res.Reason != ReasonMissingOutput {
		t.Errorf("got %+v", res)
	}
	if res.Path != "" || res.Probe != nil {
		t.Error("missing output reported a path")
	}
	if h.rec.IsRecording() {
		t.Error("session kept after failed stop")
	}
}

func TestStopNonZeroExitKeepsArtifacts(t *testing.T) {
	h := newHarness(t, ffmpegBadExit)

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	res := h.rec.Stop(context.Background())
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Message != "FFmpeg exited with code 2." {
		t.Errorf("Message = %q", res.Message)
	}
	if res.Path == "" || res.Probe == nil {
		t.Errorf("artifacts dropped: %+v", res)
	}
}

func TestStatusProgress(t *testing.T) {
	h := newHarness(t, ffmpegProgress)

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	waitFor(t, "progress", func() bool { return h.rec.Status().Progress != nil })

	p := h.rec.Status().Progress
	if p.Frame != 120 || p.DroppedFrames != 1 || p.DuplicateFrames != 3 || p.TotalSize != 4096 {
		t.Errorf("progress = %+v", p)
	}
	if p.Speed != 1.01 {
		t.Errorf("Speed = %v, want 1.01", p.Speed)
	}
}

func TestStartFirstTriesNextTarget(t *testing.T) {
	h := newHarness(t, ffmpegRejectsWindow)

	targets := []capture.Target{
		capture.Window{Title: "   "},
		capture.Window{Title: "Missing"},
		capture.Window{Title: "Editor"},
	}
	res := h.rec.StartFirst(context.Background(), StartOptions{FPS: 30}, targets)
	if !res.Success {
		t.Fatalf("StartFirst failed: %s", res.Message)
	}
	if st := h.rec.Status(); st.Target != "window" {
		t.Errorf("Target = %q", st.Target)
	}
}

func TestStartFirstStopsOnConflict(t *testing.T) {
	h := newHarness(t, ffmpegGraceful)
	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}

	res := h.rec.StartFirst(context.Background(), StartOptions{}, []capture.Target{testScreen, testScreen})
	if res.Reason != ReasonConflict {
		t.Errorf("Reason = %q, want conflict", res.Reason)
	}
}

func TestStateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	h := newHarness(t, ffmpegGraceful, func(c *Config) {
		c.OnStateChange = func(from, to State) {
			mu.Lock()
			transitions = append(transitions, string(from)+">"+string(to))
			mu.Unlock()
		}
	})

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	if res := h.rec.Stop(context.Background()); !res.Success {
		t.Fatalf("Stop failed: %s", res.Message)
	}

	want := []string{"idle>starting", "starting>recording", "recording>stopping", "stopping>idle"}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(transitions, " ") != strings.Join(want, " ") {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestShutdown(t *testing.T) {
	h := newHarness(t, ffmpegGraceful)

	if err := h.rec.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown while idle: %v", err)
	}
	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	if err := h.rec.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if h.rec.IsRecording() {
		t.Error("still recording after shutdown")
	}
}

func TestShutdownReportsFailedStop(t *testing.T) {
	h := newHarness(t, ffmpegNoOutput)

	if res := h.start(t); !res.Success {
		t.Fatalf("Start failed: %s", res.Message)
	}
	err := h.rec.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), MsgNoOutput) {
		t.Errorf("Shutdown error = %v", err)
	}
}
