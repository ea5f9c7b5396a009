package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/smazurov/screenrec/internal/capture"
	"github.com/smazurov/screenrec/internal/encoders"
	"github.com/smazurov/screenrec/internal/events"
	"github.com/smazurov/screenrec/internal/ffmpeg"
	"github.com/smazurov/screenrec/internal/logging"
	"github.com/smazurov/screenrec/internal/metrics"
	"github.com/smazurov/screenrec/internal/probe"
	"github.com/smazurov/screenrec/internal/process"
)

// Default lifecycle timeouts.
const (
	DefaultStartupGrace = 400 * time.Millisecond
	DefaultGracefulStop = 6 * time.Second
	DefaultKillWait     = 3 * time.Second
	DefaultProbeTimeout = probe.DefaultTimeout
)

// Binaries resolves the ffmpeg and ffprobe executables.
// binaries.Resolver and binaries.Swappable implement it.
type Binaries interface {
	FFmpeg() (string, bool)
	FFprobe() (string, bool)
}

// Config configures a Recorder. Zero durations use the defaults above.
type Config struct {
	Binaries      Binaries
	Selector      encoders.Selector
	GOOS          string
	RecordingsDir string
	// DefaultFPS replaces a non-positive requested frame rate.
	DefaultFPS float64

	Bus           *events.Bus
	OnStateChange func(from, to State)
	Logger        logging.Logger
	// FFmpegLogger receives ffmpeg stderr lines.
	FFmpegLogger logging.Logger

	StartupGrace time.Duration
	GracefulStop time.Duration
	KillWait     time.Duration
	ProbeTimeout time.Duration
}

type session struct {
	proc        *process.Process
	outputPath  string
	startedAt   time.Time
	encoder     string
	ffmpegPath  string
	ffprobePath string
	target      string
	fps         int
	progress    *ffmpeg.Progress
}

// Recorder owns at most one ffmpeg recording at a time. Start and Stop
// never overlap: a call that finds another lifecycle operation in flight
// is rejected, not queued.
type Recorder struct {
	goos          string
	bus           *events.Bus
	onStateChange func(from, to State)
	logger        logging.Logger
	ffmpegLogger  logging.Logger

	startupGrace time.Duration
	gracefulStop time.Duration
	killWait     time.Duration
	probeTimeout time.Duration

	mu            sync.Mutex
	state         State
	session       *session
	binaries      Binaries
	selector      encoders.Selector
	recordingsDir string
	defaultFPS    float64
}

// New creates an idle recorder.
func New(cfg Config) *Recorder {
	r := &Recorder{
		goos:          cfg.GOOS,
		bus:           cfg.Bus,
		onStateChange: cfg.OnStateChange,
		logger:        cfg.Logger,
		ffmpegLogger:  cfg.FFmpegLogger,
		startupGrace:  orDefault(cfg.StartupGrace, DefaultStartupGrace),
		gracefulStop:  orDefault(cfg.GracefulStop, DefaultGracefulStop),
		killWait:      orDefault(cfg.KillWait, DefaultKillWait),
		probeTimeout:  orDefault(cfg.ProbeTimeout, DefaultProbeTimeout),
		state:         StateIdle,
		binaries:      cfg.Binaries,
		selector:      cfg.Selector,
		recordingsDir: cfg.RecordingsDir,
		defaultFPS:    cfg.DefaultFPS,
	}
	if r.goos == "" {
		r.goos = runtime.GOOS
	}
	if r.logger == nil {
		r.logger = logging.GetLogger("recorder")
	}
	if r.ffmpegLogger == nil {
		r.ffmpegLogger = logging.GetLogger("ffmpeg")
	}
	if r.selector == nil {
		r.selector = encoders.NewProbeSelector(logging.GetLogger("encoders"), r.ObserveProbe)
	}
	if r.recordingsDir == "" {
		r.recordingsDir = DefaultRecordingsDir()
	}
	return r
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// SetSelector replaces the encoder selector used by later starts.
func (r *Recorder) SetSelector(s encoders.Selector) {
	r.mu.Lock()
	r.selector = s
	r.mu.Unlock()
}

// SetRecordingsDir changes where generated output paths are placed.
func (r *Recorder) SetRecordingsDir(dir string) {
	if dir == "" {
		return
	}
	r.mu.Lock()
	r.recordingsDir = dir
	r.mu.Unlock()
}

// SetDefaultFPS changes the frame rate used when a start request has none.
func (r *Recorder) SetDefaultFPS(fps float64) {
	r.mu.Lock()
	r.defaultFPS = fps
	r.mu.Unlock()
}

// RecordingsDir returns the directory for generated output paths.
func (r *Recorder) RecordingsDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordingsDir
}

// ObserveProbe reports an encoder probe to metrics and the event bus.
// It has the encoders.ProbeObserver signature.
func (r *Recorder) ObserveProbe(encoder string, res encoders.ProbeResult, elapsed time.Duration) {
	metrics.EncoderProbed(encoder, res.OK, elapsed)
	r.bus.Publish(events.EncoderProbedEvent{
		Encoder:    encoder,
		OK:         res.OK,
		Error:      res.Error,
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  timestamp(),
	})
}

// IsRecording reports whether a session exists.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Status returns a snapshot of the recorder state and the active session.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{State: r.state, Recording: r.session != nil}
	if s := r.session; s != nil {
		startedAt := s.startedAt
		st.OutputPath = s.outputPath
		st.Encoder = s.encoder
		st.Target = s.target
		st.FPS = s.fps
		st.PID = s.proc.PID()
		st.StartedAt = &startedAt
		st.Elapsed = time.Since(startedAt)
		if s.progress != nil {
			p := *s.progress
			st.Progress = &p
		}
	}
	return st
}

// Start spawns ffmpeg for opts and returns once it has survived the
// startup grace window. Failures are reported in the result.
func (r *Recorder) Start(ctx context.Context, opts StartOptions) StartResult {
	r.mu.Lock()
	if r.session != nil || r.state.Busy() {
		r.mu.Unlock()
		return r.startFailed(ReasonConflict, MsgAlreadyRecording)
	}
	from := r.state
	r.state = StateStarting
	bins, selector, dir, defaultFPS := r.binaries, r.selector, r.recordingsDir, r.defaultFPS
	r.mu.Unlock()
	r.notify(from, StateStarting)

	committed := false
	defer func() {
		if committed {
			return
		}
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		r.notify(StateStarting, StateIdle)
	}()

	if bins == nil {
		return r.startFailed(ReasonResolution, MsgFFmpegNotFound)
	}
	ffmpegPath, ok := bins.FFmpeg()
	if !ok {
		return r.startFailed(ReasonResolution, MsgFFmpegNotFound)
	}
	ffprobePath, ok := bins.FFprobe()
	if !ok {
		return r.startFailed(ReasonResolution, MsgFFprobeNotFound)
	}

	fpsIn := opts.FPS
	if fpsIn <= 0 && defaultFPS > 0 {
		fpsIn = defaultFPS
	}
	fps := ffmpeg.NormalizeFPS(fpsIn)

	// Capture arguments are pure, so an unusable target is rejected
	// before any encoder probe runs.
	captureArgs, err := capture.Args(opts.Target, float64(fps), r.goos)
	if err != nil {
		return r.startFailed(ReasonCaptureArgs, err.Error())
	}

	encoder := selector.Select(ctx, ffmpegPath)

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = OutputPath(dir, time.Now())
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return r.startFailed(ReasonOutputDir, fmt.Sprintf("Failed to create output directory: %v", err))
	}

	args := ffmpeg.RecordArgs(ffmpeg.RecordParams{
		CaptureArgs: captureArgs,
		FPS:         float64(fps),
		EncoderArgs: encoders.Args(encoder),
		OutputPath:  outputPath,
		Progress:    true,
	})

	sess := &session{
		outputPath:  outputPath,
		encoder:     encoder,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		target:      opts.Target.Kind(),
		fps:         fps,
	}
	parser := ffmpeg.NewProgressParser(func(p ffmpeg.Progress) {
		r.onProgress(sess, p)
	})

	r.logger.Debug("Spawning ffmpeg", "path", ffmpegPath, "args", strings.Join(args, " "))
	proc, err := process.Start(ffmpegPath, args, process.Options{
		ID:           filepath.Base(outputPath),
		Logger:       r.logger,
		OutputLogger: r.ffmpegLogger,
		LogParser:    ffmpeg.ParseLogLevel,
		OnStdoutLine: parser.HandleLine,
	})
	if err != nil {
		return r.startFailed(ReasonSpawn, err.Error())
	}
	sess.proc = proc
	sess.startedAt = proc.StartedAt()

	timer := time.NewTimer(r.startupGrace)
	defer timer.Stop()

	select {
	case <-proc.Done():
	case <-timer.C:
	case <-ctx.Done():
		_ = proc.Kill()
		_, _ = proc.WaitTimeout(r.killWait)
		return r.startFailed(ReasonSpawn, fmt.Sprintf("Recording start cancelled: %v", ctx.Err()))
	}

	// An exit inside the grace window is a failure even with code 0.
	if proc.Exited() {
		msg := strings.TrimSpace(proc.Stderr())
		if msg == "" {
			msg = fmt.Sprintf("FFmpeg exited early with code %d.", proc.ExitCode())
		}
		return r.startFailed(ReasonEarlyExit, msg)
	}

	r.mu.Lock()
	r.session = sess
	r.state = StateRecording
	r.mu.Unlock()
	committed = true
	r.notify(StateStarting, StateRecording)

	go r.watch(sess)

	metrics.RecordingStarted(encoder)
	r.bus.Publish(events.RecordingStartedEvent{
		OutputPath: outputPath,
		Encoder:    encoder,
		Target:     sess.target,
		FPS:        fps,
		PID:        proc.PID(),
		Timestamp:  timestamp(),
	})
	r.logger.Info("Recording started",
		"output", outputPath,
		"encoder", encoder,
		"target", sess.target,
		"fps", fps,
		"pid", proc.PID())

	return StartResult{
		Success:     true,
		Backend:     Backend,
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		Encoder:     encoder,
		OutputPath:  outputPath,
	}
}

// StartFirst tries each target in order until one starts. Failures that no
// other target could fix (conflict, resolution, output directory) end the
// loop early. The last result is returned.
func (r *Recorder) StartFirst(ctx context.Context, opts StartOptions, targets []capture.Target) StartResult {
	if len(targets) == 0 {
		return r.Start(ctx, opts)
	}

	var res StartResult
	for _, target := range targets {
		opts.Target = target
		res = r.Start(ctx, opts)
		if res.Success {
			return res
		}
		switch res.Reason {
		case ReasonConflict, ReasonResolution, ReasonOutputDir:
			return res
		}
		r.logger.Debug("Target failed to start, trying next", "target", target, "error", res.Message)
	}
	return res
}

// Stop asks ffmpeg to finish, kills it if it does not, then verifies the
// output file. The session is cleared whatever the outcome.
func (r *Recorder) Stop(ctx context.Context) StopResult {
	r.mu.Lock()
	s := r.session
	if s == nil {
		r.mu.Unlock()
		return r.stopFailed(StopResult{Reason: ReasonNoSession, Message: MsgNoSession})
	}
	if r.state == StateStopping {
		r.mu.Unlock()
		return r.stopFailed(StopResult{Reason: ReasonConflict, Message: MsgStopInProgress})
	}
	if s.proc.Exited() {
		// Exited before watch could clear the session.
		r.session = nil
		from := r.state
		r.state = StateIdle
		r.mu.Unlock()
		metrics.DeleteProgress(s.encoder)
		r.notify(from, StateIdle)
		r.logger.Info("ffmpeg was no longer running at stop", "output", s.outputPath, "exit_code", s.proc.ExitCode())
		return r.stopFailed(StopResult{Reason: ReasonNoSession, Message: MsgNoSession})
	}
	from := r.state
	r.state = StateStopping
	r.mu.Unlock()
	r.notify(from, StateStopping)

	defer func() {
		r.mu.Lock()
		if r.session == s {
			r.session = nil
		}
		r.state = StateIdle
		r.mu.Unlock()
		metrics.DeleteProgress(s.encoder)
		r.notify(StateStopping, StateIdle)
	}()

	r.logger.Info("Stopping recording", "output", s.outputPath, "pid", s.proc.PID())

	// A failed quit write means ffmpeg already exited; Stop then returns
	// as soon as the exit is observed.
	exit := s.proc.Stop(r.gracefulStop, r.killWait)
	res := StopResult{
		Backend:  Backend,
		ExitCode: exit.ExitCode,
		Forced:   exit.Forced,
		Duration: time.Since(s.startedAt),
	}

	if _, err := os.Stat(s.outputPath); err != nil {
		res.Reason = ReasonMissingOutput
		res.Message = MsgNoOutput
		return r.stopFailed(res)
	}

	res.Path = s.outputPath
	res.Probe = probe.Probe(ctx, s.ffprobePath, s.outputPath, r.probeTimeout)

	switch {
	case !exit.Exited:
		res.Reason = ReasonExitCode
		res.Message = "FFmpeg exited with code unknown."
		return r.stopFailed(res)
	case !exit.Forced && exit.ExitCode != 0:
		// A forced kill always reports a non-zero code, so only an exit
		// ffmpeg chose itself is judged by it.
		res.Reason = ReasonExitCode
		res.Message = fmt.Sprintf("FFmpeg exited with code %d.", exit.ExitCode)
		return r.stopFailed(res)
	}

	res.Success = true
	metrics.RecordingStopped(true, res.Forced, res.Duration)
	r.publishStopped(res)
	r.logger.Info("Recording stopped",
		"output", res.Path,
		"duration", res.Duration.Round(time.Millisecond),
		"forced", res.Forced)
	return res
}

// Shutdown stops an active recording. It is meant for process exit.
func (r *Recorder) Shutdown(ctx context.Context) error {
	var result *multierror.Error

	if r.IsRecording() {
		if res := r.Stop(ctx); !res.Success {
			result = multierror.Append(result, fmt.Errorf("stop recording: %s", res.Message))
		}
	}
	if err := ctx.Err(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// watch clears the session when ffmpeg exits without being asked to,
// whatever its exit code. A later Stop then finds no live session.
func (r *Recorder) watch(s *session) {
	<-s.proc.Done()
	code := s.proc.ExitCode()

	r.mu.Lock()
	if r.session != s || r.state == StateStopping {
		r.mu.Unlock()
		return
	}
	r.session = nil
	from := r.state
	r.state = StateIdle
	r.mu.Unlock()

	stderr := strings.TrimSpace(s.proc.Stderr())
	if code == 0 {
		r.logger.Info("ffmpeg finished on its own", "output", s.outputPath)
	} else {
		r.logger.Warn("ffmpeg exited unexpectedly", "output", s.outputPath, "exit_code", code)
	}
	metrics.RecordingExited()
	metrics.DeleteProgress(s.encoder)
	r.bus.Publish(events.RecordingExitedEvent{
		OutputPath: s.outputPath,
		ExitCode:   code,
		Stderr:     stderr,
		Timestamp:  timestamp(),
	})
	r.notify(from, StateIdle)
}

func (r *Recorder) onProgress(s *session, p ffmpeg.Progress) {
	r.mu.Lock()
	s.progress = &p
	r.mu.Unlock()

	metrics.SetProgress(s.encoder, p)
	r.bus.Publish(events.RecordingProgressEvent{
		Frame:           p.Frame,
		FPS:             p.FPS,
		Speed:           p.Speed,
		DroppedFrames:   p.DroppedFrames,
		DuplicateFrames: p.DuplicateFrames,
		TotalSize:       p.TotalSize,
		OutTime:         p.OutTime,
		Timestamp:       timestamp(),
	})
}

func (r *Recorder) notify(from, to State) {
	if from == to {
		return
	}
	r.logger.Debug("Recorder state changed", "from", from, "to", to)
	r.bus.Publish(events.RecordingStateChangedEvent{
		From:      string(from),
		To:        string(to),
		Timestamp: timestamp(),
	})
	if r.onStateChange != nil {
		r.onStateChange(from, to)
	}
}

func (r *Recorder) startFailed(reason, msg string) StartResult {
	r.logger.Warn("Recording start failed", "reason", reason, "error", msg)
	metrics.RecordingFailed("start", reason)
	if reason != ReasonConflict {
		r.publishFailed("start", reason, msg)
	}
	return StartResult{Backend: Backend, Message: msg, Reason: reason}
}

func (r *Recorder) stopFailed(res StopResult) StopResult {
	res.Success = false
	res.Backend = Backend
	if res.Reason == ReasonNoSession || res.Reason == ReasonConflict {
		r.logger.Debug("Stop rejected", "reason", res.Reason)
		return res
	}

	metrics.RecordingFailed("stop", res.Reason)
	r.logger.Warn("Recording stop failed", "reason", res.Reason, "error", res.Message, "path", res.Path)
	metrics.RecordingStopped(false, res.Forced, res.Duration)
	r.publishFailed("stop", res.Reason, res.Message)
	r.publishStopped(res)
	return res
}

func (r *Recorder) publishFailed(operation, reason, msg string) {
	r.bus.Publish(events.RecordingFailedEvent{
		Operation: operation,
		Reason:    reason,
		Message:   msg,
		Timestamp: timestamp(),
	})
}

func (r *Recorder) publishStopped(res StopResult) {
	r.bus.Publish(events.RecordingStoppedEvent{
		OutputPath:      res.Path,
		Success:         res.Success,
		Message:         res.Message,
		ExitCode:        res.ExitCode,
		Forced:          res.Forced,
		DurationSeconds: res.Duration.Seconds(),
		Timestamp:       timestamp(),
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
