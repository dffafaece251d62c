package vision

import (
	"fmt"

	"github.com/sweeney/lamp-monitor/internal/frame"
	"github.com/sweeney/lamp-monitor/internal/logic"
)

// HueRange is an inclusive hue interval on the [0,180] scale. Red needs
// two ranges because its hues wrap around both ends of the scale.
type HueRange struct {
	Min, Max int
}

// Thresholds holds every tunable of the color classifier. H bounds are on
// the [0,180] scale, S and V bounds on [0,255].
type Thresholds struct {
	MinBrightnessV int

	RedHueRanges []HueRange
	RedSatMin    int
	RedValMin    int
	RedRatio     float64

	GreenHueRange HueRange
	GreenSatMin   int
	GreenValMin   int
	GreenRatio    float64

	// KernelSize is the odd side length of the elliptical structuring
	// element used for the denoising opening.
	KernelSize int
}

// Classifier turns a lamp region into a (label, confidence) pair.
type Classifier struct {
	t      Thresholds
	kernel [][2]int
}

// NewClassifier validates the thresholds and precomputes the kernel.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if t.KernelSize < 1 || t.KernelSize%2 == 0 {
		return nil, fmt.Errorf("kernel size must be odd and positive, got %d", t.KernelSize)
	}
	if t.RedRatio <= 0 || t.RedRatio > 1 {
		return nil, fmt.Errorf("red ratio threshold must be in (0,1], got %g", t.RedRatio)
	}
	if t.GreenRatio <= 0 || t.GreenRatio > 1 {
		return nil, fmt.Errorf("green ratio threshold must be in (0,1], got %g", t.GreenRatio)
	}
	if len(t.RedHueRanges) == 0 {
		return nil, fmt.Errorf("at least one red hue range is required")
	}
	return &Classifier{t: t, kernel: ellipseKernel(t.KernelSize)}, nil
}

// Classify analyzes a region and returns its label with a confidence equal
// to the winning color's area ratio over the bright pixels. Red is checked
// first and wins any ambiguity. A region with no bright pixels is
// (UNKNOWN, 0.0).
func (c *Classifier) Classify(reg frame.Region) logic.Classification {
	w, h := reg.Width(), reg.Height()
	if w == 0 || h == 0 {
		return logic.Classification{Label: logic.LabelUnknown}
	}

	hue := make([]uint8, w*h)
	sat := make([]uint8, w*h)
	val := make([]uint8, w*h)
	bright := newMask(w, h)
	brightCount := 0

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b, g, r := reg.BGRAt(x, y)
			hh, ss, vv := bgrToHSV(b, g, r)
			i := y*w + x
			hue[i], sat[i], val[i] = hh, ss, vv
			if int(vv) >= c.t.MinBrightnessV {
				bright.bits[i] = true
				brightCount++
			}
		}
	}

	if brightCount == 0 {
		return logic.Classification{Label: logic.LabelUnknown}
	}

	redRatio := c.ratio(hue, sat, val, bright, brightCount,
		c.t.RedHueRanges, c.t.RedSatMin, c.t.RedValMin)
	if redRatio >= c.t.RedRatio {
		return logic.Classification{Label: logic.LabelRed, Confidence: redRatio}
	}

	greenRatio := c.ratio(hue, sat, val, bright, brightCount,
		[]HueRange{c.t.GreenHueRange}, c.t.GreenSatMin, c.t.GreenValMin)
	if greenRatio >= c.t.GreenRatio {
		return logic.Classification{Label: logic.LabelGreen, Confidence: greenRatio}
	}

	return logic.Classification{Label: logic.LabelUnknown}
}

// ratio builds the color mask (union of hue ranges, saturation and value
// floors, intersected with the bright mask), applies the opening, and
// returns filtered color pixels over bright pixels.
func (c *Classifier) ratio(hue, sat, val []uint8, bright *mask, brightCount int, ranges []HueRange, satMin, valMin int) float64 {
	m := newMask(bright.w, bright.h)
	for i := range m.bits {
		if !bright.bits[i] {
			continue
		}
		if int(sat[i]) < satMin || int(val[i]) < valMin {
			continue
		}
		for _, r := range ranges {
			if int(hue[i]) >= r.Min && int(hue[i]) <= r.Max {
				m.bits[i] = true
				break
			}
		}
	}

	opened := open(m, c.kernel)
	return float64(opened.count()) / float64(brightCount)
}
