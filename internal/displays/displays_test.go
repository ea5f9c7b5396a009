package displays

import (
	"image"
	"testing"
)

type fakeSource []image.Rectangle

func (f fakeSource) NumActiveDisplays() int { return len(f) }

func (f fakeSource) GetDisplayBounds(i int) image.Rectangle { return f[i] }

func TestList(t *testing.T) {
	src := fakeSource{
		image.Rect(0, 0, 2560, 1440),
		image.Rect(2560, 0, 2560, 0), // unplugged
		image.Rect(-1367, 200, 0, 969),
	}

	got := List(src)
	if len(got) != 2 {
		t.Fatalf("got %d displays, want 2", len(got))
	}
	if !got[0].Primary || got[1].Primary {
		t.Errorf("primary flags = %v, %v", got[0].Primary, got[1].Primary)
	}
	if got[1].Index != 2 {
		t.Errorf("index = %d, want 2", got[1].Index)
	}
	b := got[1].Bounds
	if b.X != -1367 || b.Y != 200 || b.Width != 1367 || b.Height != 769 {
		t.Errorf("bounds = %+v", b)
	}
}

func TestTargetEvenBounds(t *testing.T) {
	src := fakeSource{image.Rect(0, 0, 1920, 1080), image.Rect(1920, 0, 3287, 769)}

	target, err := TargetFor(src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if target.DisplayIndex != 1 {
		t.Errorf("DisplayIndex = %d", target.DisplayIndex)
	}
	if target.Bounds.Width != 1366 || target.Bounds.Height != 768 {
		t.Errorf("bounds = %+v, want 1366x768", target.Bounds)
	}
	if target.Bounds.X != 1920 {
		t.Errorf("X = %d", target.Bounds.X)
	}

	if _, err := TargetFor(src, 5); err == nil {
		t.Error("expected error for unknown display")
	}
}
