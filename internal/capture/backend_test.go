package capture

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func TestGdigrabScreenArgs(t *testing.T) {
	target := Screen{Bounds: Bounds{X: -1920, Y: 8, Width: 1921, Height: 1081}}

	got, err := Args(target, 59.6, "windows")
	if err != nil {
		t.Fatalf("Args: %v", err)
	}

	want := []string{
		"-f", "gdigrab",
		"-framerate", "60",
		"-draw_mouse", "1",
		"-offset_x", "-1920",
		"-offset_y", "8",
		"-video_size", "1920x1080",
		"-i", "desktop",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestGdigrabWindowArgs(t *testing.T) {
	got, err := Args(Window{Title: "  Untitled - Notepad "}, 30, "windows")
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	want := []string{"-f", "gdigrab", "-framerate", "30", "-draw_mouse", "1", "-i", "title=Untitled - Notepad"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestBlankWindowTitle(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		got, err := Args(Window{Title: title}, 30, "windows")
		if !errors.Is(err, ErrInvalidWindowTitle) {
			t.Errorf("title %q: err = %v, want ErrInvalidWindowTitle", title, err)
		}
		if got != nil {
			t.Errorf("title %q: got partial args %v", title, got)
		}
	}
}

func TestNegativeDisplayIndex(t *testing.T) {
	for _, goos := range []string{"windows", "darwin"} {
		got, err := Args(Screen{DisplayIndex: -1}, 30, goos)
		if err == nil || errors.Is(err, ErrUnsupportedTarget) {
			t.Errorf("%s: err = %v, want a validation error", goos, err)
		}
		if got != nil {
			t.Errorf("%s: got partial args %v", goos, got)
		}
	}
}

func TestAVFoundationScreenArgs(t *testing.T) {
	got, err := Args(Screen{DisplayIndex: 2}, math.NaN(), "darwin")
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	want := []string{"-f", "avfoundation", "-framerate", "60", "-i", "Capture screen 2:none"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestUnsupportedCombinations(t *testing.T) {
	tests := []struct {
		goos   string
		target Target
	}{
		{"darwin", Window{Title: "Safari"}},
		{"darwin", Window{Title: "  "}},
		{"linux", Window{Title: ""}},
		{"linux", Screen{DisplayIndex: -1}},
		{"linux", Screen{Bounds: Bounds{Width: 1280, Height: 720}}},
		{"linux", Window{Title: "xterm"}},
		{"freebsd", Screen{}},
		{"windows", nil},
	}

	for _, tt := range tests {
		name := tt.goos
		if tt.target != nil {
			name += "/" + tt.target.Kind()
		}
		t.Run(name, func(t *testing.T) {
			got, err := Args(tt.target, 60, tt.goos)
			if !errors.Is(err, ErrUnsupportedTarget) {
				t.Errorf("err = %v, want ErrUnsupportedTarget", err)
			}
			if got != nil {
				t.Errorf("got partial args %v", got)
			}
		})
	}
}

func TestScreenSizeAlwaysEven(t *testing.T) {
	for w := -5; w <= 41; w++ {
		for h := 0; h <= 9; h++ {
			args, err := Args(Screen{Bounds: Bounds{Width: w, Height: h}}, 60, "windows")
			if err != nil {
				t.Fatalf("Args(%dx%d): %v", w, h, err)
			}
			size := args[len(args)-3]
			parts := strings.Split(size, "x")
			if len(parts) != 2 {
				t.Fatalf("bad video_size %q", size)
			}
			gotW, gotH := atoi(t, parts[0]), atoi(t, parts[1])
			if gotW%2 != 0 || gotH%2 != 0 {
				t.Errorf("bounds %dx%d produced odd size %q", w, h, size)
			}
		}
	}
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	if err != nil {
		t.Fatalf("not a number: %q", s)
	}
	return n
}

func TestBackendFor(t *testing.T) {
	tests := map[string]string{
		"windows": "gdigrab",
		"darwin":  "avfoundation",
		"linux":   "unsupported",
		"plan9":   "unsupported",
	}
	for goos, want := range tests {
		if got := BackendFor(goos).Name(); got != want {
			t.Errorf("BackendFor(%q).Name() = %q, want %q", goos, got, want)
		}
	}
}

func TestWindowTitles(t *testing.T) {
	got := WindowTitles([]string{" Editor ", "", "Editor", "Browser", "  "})
	want := []string{"Editor", "Browser"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
