// Package displays enumerates the active displays and turns them into
// screen capture targets.
package displays

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/smazurov/screenrec/internal/capture"
)

// Display is one active monitor in virtual desktop coordinates.
type Display struct {
	Index  int            `json:"index" example:"0" doc:"Display index"`
	Bounds capture.Bounds `json:"bounds" doc:"Display bounds in desktop pixels"`
	// Primary is the display containing the desktop origin.
	Primary bool `json:"primary" doc:"Whether this is the primary display"`
}

// Source reports display geometry. The screenshot package is the default.
type Source interface {
	NumActiveDisplays() int
	GetDisplayBounds(index int) image.Rectangle
}

type screenshotSource struct{}

func (screenshotSource) NumActiveDisplays() int { return screenshot.NumActiveDisplays() }

func (screenshotSource) GetDisplayBounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

// System is the Source backed by the host windowing system.
var System Source = screenshotSource{}

// List returns the active displays of src. Displays with an empty area
// are skipped.
func List(src Source) []Display {
	n := src.NumActiveDisplays()
	out := make([]Display, 0, n)
	for i := 0; i < n; i++ {
		r := src.GetDisplayBounds(i)
		if r.Empty() {
			continue
		}
		out = append(out, Display{
			Index: i,
			Bounds: capture.Bounds{
				X:      r.Min.X,
				Y:      r.Min.Y,
				Width:  r.Dx(),
				Height: r.Dy(),
			},
			Primary: r.Min.X == 0 && r.Min.Y == 0,
		})
	}
	return out
}

// Target returns a screen target covering d with even dimensions.
func (d Display) Target() capture.Screen {
	return capture.Screen{
		Bounds:       d.Bounds.Even(),
		DisplayIndex: d.Index,
	}
}

// TargetFor looks up display index in src.
func TargetFor(src Source, index int) (capture.Screen, error) {
	for _, d := range List(src) {
		if d.Index == index {
			return d.Target(), nil
		}
	}
	return capture.Screen{}, fmt.Errorf("display %d not found", index)
}
