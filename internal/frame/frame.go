// Package frame provides the pixel frame type, lamp region extraction,
// and frame sources. The real capture backend is deployment-specific;
// this package ships an MJPEG network source and a synthetic generator.
package frame

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfBounds is returned when a lamp rectangle extends outside the frame.
var ErrOutOfBounds = errors.New("frame: region out of bounds")

// Rect is a lamp region in frame pixel coordinates.
type Rect struct {
	X, Y, W, H int
}

// Frame is a single captured image in packed BGR24 layout (3 bytes per
// pixel, row-major, blue first). The byte order matches what V4L2 and
// OpenCV captures hand over, so thresholds tuned against those carry over.
type Frame struct {
	Pix       []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// New allocates a zeroed frame of the given dimensions.
func New(width, height int) *Frame {
	return &Frame{
		Pix:    make([]byte, width*height*3),
		Width:  width,
		Height: height,
	}
}

// SetBGR sets the pixel at (x, y). Out-of-range coordinates are ignored.
func (f *Frame) SetBGR(x, y int, b, g, r byte) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := (y*f.Width + x) * 3
	f.Pix[i] = b
	f.Pix[i+1] = g
	f.Pix[i+2] = r
}

// Fill paints the given rectangle, clipped to the frame.
func (f *Frame) Fill(r Rect, b, g, red byte) {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			f.SetBGR(x, y, b, g, red)
		}
	}
}

// Region is a read-only view of a rectangular sub-area of a frame.
type Region struct {
	f *Frame
	r Rect
}

// Region returns a view of the given rectangle, or ErrOutOfBounds when the
// rectangle extends outside the frame. The view shares the frame's pixels.
func (f *Frame) Region(r Rect) (Region, error) {
	if r.W <= 0 || r.H <= 0 {
		return Region{}, fmt.Errorf("%w: empty rect %+v", ErrOutOfBounds, r)
	}
	if r.X < 0 || r.Y < 0 || r.X+r.W > f.Width || r.Y+r.H > f.Height {
		return Region{}, fmt.Errorf("%w: rect %+v in %dx%d frame", ErrOutOfBounds, r, f.Width, f.Height)
	}
	return Region{f: f, r: r}, nil
}

// Width returns the region width in pixels.
func (g Region) Width() int { return g.r.W }

// Height returns the region height in pixels.
func (g Region) Height() int { return g.r.H }

// BGRAt returns the pixel at region-local coordinates (x, y).
func (g Region) BGRAt(x, y int) (b, gr, r byte) {
	i := ((g.r.Y+y)*g.f.Width + g.r.X + x) * 3
	return g.f.Pix[i], g.f.Pix[i+1], g.f.Pix[i+2]
}

// Source produces frames at the capture cadence.
type Source interface {
	// Capture returns the next frame. Blocks until one is available.
	Capture() (*Frame, error)

	// Close releases capture resources.
	Close() error
}
