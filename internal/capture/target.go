// Package capture describes what to record and turns it into ffmpeg input
// arguments for the host platform's native capture device.
package capture

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedTarget is returned when the platform has no capture path for a target.
	ErrUnsupportedTarget = errors.New("unsupported recording target for current platform")
	// ErrInvalidWindowTitle is returned for window targets whose title is blank.
	ErrInvalidWindowTitle = errors.New("invalid window title")
)

// Target is either a Screen or a Window.
type Target interface {
	// Kind returns "screen" or "window".
	Kind() string
	Validate() error
	isTarget()
}

// Bounds is a rectangle in physical pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Even returns the bounds with width and height floored to even values.
func (b Bounds) Even() Bounds {
	b.Width = EvenFloor(b.Width)
	b.Height = EvenFloor(b.Height)
	return b
}

func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", b.Width, b.Height, b.X, b.Y)
}

// Screen records a region of a display.
type Screen struct {
	Bounds       Bounds
	DisplayIndex int
}

// Kind implements Target.
func (Screen) Kind() string { return "screen" }

// Validate implements Target.
func (s Screen) Validate() error {
	if s.DisplayIndex < 0 {
		return fmt.Errorf("display index must not be negative, got %d", s.DisplayIndex)
	}
	return nil
}

func (Screen) isTarget() {}

// Window records a single window addressed by its title.
type Window struct {
	Title string
}

// Kind implements Target.
func (Window) Kind() string { return "window" }

// Validate implements Target.
func (w Window) Validate() error {
	if strings.TrimSpace(w.Title) == "" {
		return ErrInvalidWindowTitle
	}
	return nil
}

func (Window) isTarget() {}

// EvenFloor rounds v toward zero to the nearest even integer.
func EvenFloor(v int) int {
	return v - v%2
}

// WindowTitles trims and dedups title candidates, keeping their order.
func WindowTitles(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	titles := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		titles = append(titles, c)
	}
	return titles
}
