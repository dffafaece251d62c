package frame

import (
	"sync"
	"time"
)

// Lamp fill colors used by the synthetic panel. Values are saturated
// primaries so classification thresholds behave the same as against a
// real panel lamp at full brightness.
type Color struct {
	R, G, B uint8
}

var (
	ColorRed   = Color{R: 255}
	ColorGreen = Color{G: 255}
	ColorOff   = Color{R: 50, G: 50, B: 50} // matches the panel background
)

// SyntheticSource generates dashboard frames with each configured lamp
// painted in a scriptable color. It is the test double for the camera and
// also backs the daemon's -synthetic mode. Safe for concurrent use.
type SyntheticSource struct {
	mu     sync.Mutex
	width  int
	height int
	rois   map[int]Rect
	colors map[int]Color
	now    func() time.Time

	// CaptureError, if set, will be returned by Capture.
	CaptureError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewSyntheticSource creates a generator for the given panel dimensions
// and lamp regions. All lamps start as ColorGreen.
func NewSyntheticSource(width, height int, rois map[int]Rect) *SyntheticSource {
	colors := make(map[int]Color, len(rois))
	for id := range rois {
		colors[id] = ColorGreen
	}
	return &SyntheticSource{
		width:  width,
		height: height,
		rois:   rois,
		colors: colors,
		now:    time.Now,
	}
}

// SetLamp sets the color a lamp will be painted with on subsequent frames.
func (s *SyntheticSource) SetLamp(lampID int, c Color) {
	s.mu.Lock()
	s.colors[lampID] = c
	s.mu.Unlock()
}

// SetNow overrides the clock used for frame timestamps. For tests.
func (s *SyntheticSource) SetNow(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Capture paints and returns the current panel frame.
func (s *SyntheticSource) Capture() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CaptureError != nil {
		return nil, s.CaptureError
	}

	f := New(s.width, s.height)
	f.Timestamp = s.now()
	f.Fill(Rect{X: 0, Y: 0, W: s.width, H: s.height}, 50, 50, 50)
	for id, r := range s.rois {
		c := s.colors[id]
		f.Fill(r, c.B, c.G, c.R)
	}
	return f, nil
}

// Close marks the source as closed.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	s.Closed = true
	s.mu.Unlock()
	return nil
}
