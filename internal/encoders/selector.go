package encoders

import (
	"context"
	"runtime"
	"time"

	"github.com/smazurov/screenrec/internal/logging"
)

// Selector chooses the encoder for a recording.
type Selector interface {
	// Select always returns a usable encoder name.
	Select(ctx context.Context, ffmpegPath string) string
}

// ProbeObserver is told about every probe a selector runs.
type ProbeObserver func(encoder string, result ProbeResult, elapsed time.Duration)

// ProbeSelector probes the platform candidates in order and picks the first
// that works, falling back to the software encoder.
type ProbeSelector struct {
	GOOS     string
	Timeout  time.Duration
	Logger   logging.Logger
	Observer ProbeObserver
}

// NewProbeSelector creates a selector for the running platform.
func NewProbeSelector(logger logging.Logger, observer ProbeObserver) *ProbeSelector {
	return &ProbeSelector{
		GOOS:     runtime.GOOS,
		Timeout:  DefaultProbeTimeout,
		Logger:   logger,
		Observer: observer,
	}
}

// Select implements Selector. Candidates are probed one at a time.
func (s *ProbeSelector) Select(ctx context.Context, ffmpegPath string) string {
	for _, encoder := range Candidates(s.GOOS) {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		res := Probe(ctx, ffmpegPath, encoder, s.Timeout)
		elapsed := time.Since(start)

		if s.Observer != nil {
			s.Observer(encoder, res, elapsed)
		}
		if res.OK {
			if s.Logger != nil {
				s.Logger.Info("Selected encoder", "encoder", encoder, "probe_duration", elapsed)
			}
			return encoder
		}
		if s.Logger != nil {
			s.Logger.Debug("Encoder probe failed", "encoder", encoder, "error", res.Error)
		}
	}

	if s.Logger != nil {
		s.Logger.Warn("No candidate encoder probed successfully, using software encoder", "encoder", Software)
	}
	return Software
}

// Fixed selects a pinned encoder without probing. Names without a profile
// select the software encoder.
type Fixed string

// Select implements Selector.
func (f Fixed) Select(context.Context, string) string {
	if Known(string(f)) {
		return string(f)
	}
	return Software
}
