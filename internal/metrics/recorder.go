package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordingsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "recordings_started_total",
		Help:      "Recordings that survived the startup window",
	}, []string{"encoder"})

	recordingsStopped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "recordings_stopped_total",
		Help:      "Completed stop requests by outcome",
	}, []string{"result", "forced"})

	recordingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "failures_total",
		Help:      "Failed start and stop requests by reason",
	}, []string{"operation", "reason"})

	unexpectedExits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "unexpected_exits_total",
		Help:      "Recordings whose ffmpeg exited on its own before stop",
	})

	recordingActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "active",
		Help:      "1 while a recording session exists",
	})

	recordingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "recorder",
		Name:      "recording_duration_seconds",
		Help:      "Wall clock length of stopped recordings",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	encoderProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "encoders",
		Name:      "probes_total",
		Help:      "Encoder probes by encoder and outcome",
	}, []string{"encoder", "result"})

	encoderProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "encoders",
		Name:      "probe_duration_seconds",
		Help:      "Encoder probe duration",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
	}, []string{"encoder"})
)

// RecordingStarted counts a started recording and marks the recorder active.
func RecordingStarted(encoder string) {
	recordingsStarted.WithLabelValues(encoder).Inc()
	recordingActive.Set(1)
}

// RecordingStopped counts a finished stop request.
func RecordingStopped(success, forced bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	recordingsStopped.WithLabelValues(result, strconv.FormatBool(forced)).Inc()
	recordingDuration.Observe(duration.Seconds())
	recordingActive.Set(0)
}

// RecordingFailed counts a failed start or stop request.
func RecordingFailed(operation, reason string) {
	recordingFailures.WithLabelValues(operation, reason).Inc()
}

// RecordingExited counts an unexpected ffmpeg exit and clears the active gauge.
func RecordingExited() {
	unexpectedExits.Inc()
	recordingActive.Set(0)
}

// EncoderProbed records the outcome of one encoder probe.
func EncoderProbed(encoder string, ok bool, elapsed time.Duration) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	encoderProbes.WithLabelValues(encoder, result).Inc()
	encoderProbeDuration.WithLabelValues(encoder).Observe(elapsed.Seconds())
}

// HTTPHandler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
