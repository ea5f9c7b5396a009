package capture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smazurov/screenrec/internal/ffmpeg"
)

// Backend produces the input half of an ffmpeg command line for one
// platform capture device.
type Backend interface {
	// Name is the ffmpeg input format, or "unsupported".
	Name() string
	// Args returns the complete input arguments, or an error and no arguments.
	Args(target Target, fps int) ([]string, error)
}

// BackendFor returns the capture backend for goos.
func BackendFor(goos string) Backend {
	switch goos {
	case "windows":
		return gdigrab{}
	case "darwin":
		return avfoundation{}
	default:
		return unsupported{goos: goos}
	}
}

// Args builds capture arguments for target on goos with a normalized frame
// rate. The backend decides support first, so a target kind the platform
// cannot capture is unsupported even when it is also malformed.
func Args(target Target, fps float64, goos string) ([]string, error) {
	if target == nil {
		return nil, fmt.Errorf("no recording target: %w", ErrUnsupportedTarget)
	}
	return BackendFor(goos).Args(target, ffmpeg.NormalizeFPS(fps))
}

// gdigrab captures the Windows desktop or a titled window.
type gdigrab struct{}

func (gdigrab) Name() string { return "gdigrab" }

func (gdigrab) Args(target Target, fps int) ([]string, error) {
	switch t := target.(type) {
	case Screen:
		if err := t.Validate(); err != nil {
			return nil, err
		}
		b := t.Bounds.Even()
		return []string{
			"-f", "gdigrab",
			"-framerate", strconv.Itoa(fps),
			"-draw_mouse", "1",
			"-offset_x", strconv.Itoa(b.X),
			"-offset_y", strconv.Itoa(b.Y),
			"-video_size", fmt.Sprintf("%dx%d", b.Width, b.Height),
			"-i", "desktop",
		}, nil
	case Window:
		if err := t.Validate(); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(t.Title)
		return []string{
			"-f", "gdigrab",
			"-framerate", strconv.Itoa(fps),
			"-draw_mouse", "1",
			"-i", "title=" + title,
		}, nil
	}
	return nil, ErrUnsupportedTarget
}

// avfoundation captures a whole macOS display. Window capture is not offered.
type avfoundation struct{}

func (avfoundation) Name() string { return "avfoundation" }

func (avfoundation) Args(target Target, fps int) ([]string, error) {
	screen, ok := target.(Screen)
	if !ok {
		return nil, fmt.Errorf("%s capture on darwin: %w", target.Kind(), ErrUnsupportedTarget)
	}
	if err := screen.Validate(); err != nil {
		return nil, err
	}
	return []string{
		"-f", "avfoundation",
		"-framerate", strconv.Itoa(fps),
		"-i", fmt.Sprintf("Capture screen %d:none", screen.DisplayIndex),
	}, nil
}

type unsupported struct {
	goos string
}

func (unsupported) Name() string { return "unsupported" }

func (u unsupported) Args(target Target, _ int) ([]string, error) {
	return nil, fmt.Errorf("%s capture on %s: %w", target.Kind(), u.goos, ErrUnsupportedTarget)
}
