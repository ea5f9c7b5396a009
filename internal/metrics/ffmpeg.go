// Package metrics provides Prometheus metrics for recordings and the ffmpeg
// process behind them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smazurov/screenrec/internal/ffmpeg"
)

const namespace = "screenrec"

var (
	ffmpegFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "fps",
		Help:      "Current FFmpeg encoding FPS",
	}, []string{"encoder"})

	ffmpegFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "frames",
		Help:      "Frames encoded in the current recording",
	}, []string{"encoder"})

	ffmpegDroppedFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "dropped_frames_total",
		Help:      "Total dropped frames",
	}, []string{"encoder"})

	ffmpegDuplicateFrames = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "duplicate_frames_total",
		Help:      "Total duplicate frames",
	}, []string{"encoder"})

	ffmpegSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "processing_speed",
		Help:      "FFmpeg processing speed multiplier",
	}, []string{"encoder"})

	ffmpegOutputBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ffmpeg",
		Name:      "output_bytes",
		Help:      "Bytes written to the current recording",
	}, []string{"encoder"})
)

// SetProgress records one ffmpeg progress block for the active recording.
func SetProgress(encoder string, p ffmpeg.Progress) {
	ffmpegFPS.WithLabelValues(encoder).Set(p.FPS)
	ffmpegFrames.WithLabelValues(encoder).Set(float64(p.Frame))
	ffmpegDroppedFrames.WithLabelValues(encoder).Set(float64(p.DroppedFrames))
	ffmpegDuplicateFrames.WithLabelValues(encoder).Set(float64(p.DuplicateFrames))
	ffmpegSpeed.WithLabelValues(encoder).Set(p.Speed)
	ffmpegOutputBytes.WithLabelValues(encoder).Set(float64(p.TotalSize))
}

// DeleteProgress removes the progress series once a recording has ended.
func DeleteProgress(encoder string) {
	ffmpegFPS.DeleteLabelValues(encoder)
	ffmpegFrames.DeleteLabelValues(encoder)
	ffmpegDroppedFrames.DeleteLabelValues(encoder)
	ffmpegDuplicateFrames.DeleteLabelValues(encoder)
	ffmpegSpeed.DeleteLabelValues(encoder)
	ffmpegOutputBytes.DeleteLabelValues(encoder)
}
