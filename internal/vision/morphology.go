package vision

import "math"

// mask is a binary pixel mask over a w*h region, row-major.
type mask struct {
	bits []bool
	w, h int
}

func newMask(w, h int) *mask {
	return &mask{bits: make([]bool, w*h), w: w, h: h}
}

func (m *mask) at(x, y int) bool {
	return m.bits[y*m.w+x]
}

func (m *mask) set(x, y int, v bool) {
	m.bits[y*m.w+x] = v
}

func (m *mask) count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// ellipseKernel builds a size x size elliptical structuring element
// (offsets from the anchor at the center), matching OpenCV's
// MORPH_ELLIPSE construction. Size must be odd and positive.
func ellipseKernel(size int) [][2]int {
	r := size / 2
	var offsets [][2]int
	rr := float64(r * r)
	for dy := -r; dy <= r; dy++ {
		var extent int
		if r == 0 {
			extent = 0
		} else {
			dx2 := rr - float64(dy*dy)
			if dx2 < 0 {
				continue
			}
			extent = int(float64(r) * math.Sqrt(dx2/rr))
		}
		for dx := -extent; dx <= extent; dx++ {
			offsets = append(offsets, [2]int{dx, dy})
		}
	}
	return offsets
}

// open applies a morphological opening (erosion then dilation) with the
// given structuring element. Pixels beyond the region border count as set
// for erosion and unset for dilation, so the border itself does not eat
// into the mask.
func open(m *mask, kernel [][2]int) *mask {
	return dilate(erode(m, kernel), kernel)
}

func erode(m *mask, kernel [][2]int) *mask {
	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			keep := true
			for _, off := range kernel {
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
					continue
				}
				if !m.at(nx, ny) {
					keep = false
					break
				}
			}
			out.set(x, y, keep)
		}
	}
	return out
}

func dilate(m *mask, kernel [][2]int) *mask {
	out := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			hit := false
			for _, off := range kernel {
				// Dilation reflects the structuring element; the ellipse is
				// symmetric so the offsets can be reused as-is.
				nx, ny := x+off[0], y+off[1]
				if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
					continue
				}
				if m.at(nx, ny) {
					hit = true
					break
				}
			}
			out.set(x, y, hit)
		}
	}
	return out
}

