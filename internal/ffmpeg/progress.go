package ffmpeg

import (
	"strconv"
	"strings"
	"sync"
)

// Progress is one block of ffmpeg -progress output.
type Progress struct {
	Frame           int64   `json:"frame"`
	FPS             float64 `json:"fps"`
	Speed           float64 `json:"speed"`
	DroppedFrames   int64   `json:"drop_frames"`
	DuplicateFrames int64   `json:"dup_frames"`
	TotalSize       int64   `json:"total_size"`
	OutTime         string  `json:"out_time,omitempty"`
	// Ended is set on the final block (progress=end).
	Ended bool `json:"ended"`
}

// ProgressParser accumulates key=value lines and emits a Progress at each
// progress= terminator.
type ProgressParser struct {
	mu      sync.Mutex
	pending map[string]string
	onBlock func(Progress)
}

// NewProgressParser creates a parser that calls onBlock for every completed block.
func NewProgressParser(onBlock func(Progress)) *ProgressParser {
	return &ProgressParser{
		pending: make(map[string]string),
		onBlock: onBlock,
	}
}

// HandleLine feeds one line of ffmpeg stdout.
func (p *ProgressParser) HandleLine(line string) {
	line = strings.TrimSpace(line)
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	p.mu.Lock()
	if key != "progress" {
		p.pending[key] = value
		p.mu.Unlock()
		return
	}
	block := parseProgress(p.pending, value == "end")
	p.pending = make(map[string]string)
	p.mu.Unlock()

	if p.onBlock != nil {
		p.onBlock(block)
	}
}

func parseProgress(data map[string]string, ended bool) Progress {
	pr := Progress{OutTime: data["out_time"], Ended: ended}
	if v, err := strconv.ParseInt(data["frame"], 10, 64); err == nil {
		pr.Frame = v
	}
	if v, err := strconv.ParseFloat(data["fps"], 64); err == nil {
		pr.FPS = v
	}
	if v, err := strconv.ParseInt(data["drop_frames"], 10, 64); err == nil {
		pr.DroppedFrames = v
	}
	if v, err := strconv.ParseInt(data["dup_frames"], 10, 64); err == nil {
		pr.DuplicateFrames = v
	}
	if v, err := strconv.ParseInt(data["total_size"], 10, 64); err == nil {
		pr.TotalSize = v
	}
	speed := strings.TrimSpace(strings.TrimSuffix(data["speed"], "x"))
	if v, err := strconv.ParseFloat(speed, 64); err == nil {
		pr.Speed = v
	}
	return pr
}
