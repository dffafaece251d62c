package frame

import (
	"errors"
	"testing"
	"time"
)

func TestRegionExtraction(t *testing.T) {
	f := New(100, 80)
	f.Fill(Rect{X: 10, Y: 10, W: 5, H: 5}, 1, 2, 3)

	reg, err := f.Region(Rect{X: 10, Y: 10, W: 5, H: 5})
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	if reg.Width() != 5 || reg.Height() != 5 {
		t.Errorf("dimensions: got %dx%d, want 5x5", reg.Width(), reg.Height())
	}

	b, g, r := reg.BGRAt(0, 0)
	if b != 1 || g != 2 || r != 3 {
		t.Errorf("BGRAt(0,0): got (%d,%d,%d), want (1,2,3)", b, g, r)
	}

	// A pixel outside the filled area is still inside the region view.
	reg2, err := f.Region(Rect{X: 0, Y: 0, W: 100, H: 80})
	if err != nil {
		t.Fatalf("Region: %v", err)
	}
	b, g, r = reg2.BGRAt(50, 50)
	if b != 0 || g != 0 || r != 0 {
		t.Errorf("BGRAt(50,50): got (%d,%d,%d), want zeroes", b, g, r)
	}
}

func TestRegionOutOfBounds(t *testing.T) {
	f := New(100, 80)

	cases := []struct {
		name string
		rect Rect
	}{
		{"negative x", Rect{X: -1, Y: 0, W: 10, H: 10}},
		{"negative y", Rect{X: 0, Y: -1, W: 10, H: 10}},
		{"exceeds width", Rect{X: 95, Y: 0, W: 10, H: 10}},
		{"exceeds height", Rect{X: 0, Y: 75, W: 10, H: 10}},
		{"zero width", Rect{X: 10, Y: 10, W: 0, H: 10}},
		{"zero height", Rect{X: 10, Y: 10, W: 10, H: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.Region(tc.rect)
			if !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("expected ErrOutOfBounds, got %v", err)
			}
		})
	}

	// Exactly at the edge is still in bounds.
	if _, err := f.Region(Rect{X: 90, Y: 70, W: 10, H: 10}); err != nil {
		t.Errorf("edge rect should be in bounds, got %v", err)
	}
}

func TestSyntheticSource(t *testing.T) {
	rois := map[int]Rect{
		1: {X: 10, Y: 10, W: 20, H: 20},
		2: {X: 40, Y: 10, W: 20, H: 20},
	}
	src := NewSyntheticSource(100, 50, rois)
	ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	src.SetNow(func() time.Time { return ts })

	f, err := src.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if f.Width != 100 || f.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 100x50", f.Width, f.Height)
	}
	if !f.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", f.Timestamp, ts)
	}

	// Lamps start green.
	reg, _ := f.Region(rois[1])
	b, g, r := reg.BGRAt(10, 10)
	if b != 0 || g != 255 || r != 0 {
		t.Errorf("lamp 1 pixel: got (%d,%d,%d), want green (0,255,0)", b, g, r)
	}

	// Background is gray.
	bg, _ := f.Region(Rect{X: 0, Y: 40, W: 10, H: 10})
	b, g, r = bg.BGRAt(0, 0)
	if b != 50 || g != 50 || r != 50 {
		t.Errorf("background pixel: got (%d,%d,%d), want (50,50,50)", b, g, r)
	}

	// Flip lamp 2 to red and re-capture.
	src.SetLamp(2, ColorRed)
	f, err = src.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	reg, _ = f.Region(rois[2])
	b, g, r = reg.BGRAt(5, 5)
	if b != 0 || g != 0 || r != 255 {
		t.Errorf("lamp 2 pixel: got (%d,%d,%d), want red (0,0,255)", b, g, r)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !src.Closed {
		t.Error("Closed flag not set")
	}
}

func TestSyntheticCaptureError(t *testing.T) {
	src := NewSyntheticSource(10, 10, nil)
	src.CaptureError = errors.New("boom")
	if _, err := src.Capture(); err == nil {
		t.Error("expected configured capture error")
	}
}
