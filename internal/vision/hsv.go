// Package vision classifies lamp regions into discrete color labels using
// HSV thresholding with morphological denoising. All functions are pure:
// identical pixels and thresholds yield identical results.
package vision

// bgrToHSV converts one pixel to HSV on the OpenCV 8-bit scale:
// H in [0,179] (degrees halved), S and V in [0,255]. Keeping this scale
// means hue/saturation thresholds tuned against OpenCV captures apply
// unchanged.
func bgrToHSV(b, g, r uint8) (h, s, v uint8) {
	maxC := b
	if g > maxC {
		maxC = g
	}
	if r > maxC {
		maxC = r
	}
	minC := b
	if g < minC {
		minC = g
	}
	if r < minC {
		minC = r
	}

	v = maxC
	diff := int(maxC) - int(minC)
	if maxC == 0 || diff == 0 {
		return 0, 0, v
	}

	s = uint8((255*diff + int(maxC)/2) / int(maxC))

	// Hue in degrees, then halved into [0,179].
	var deg int
	switch maxC {
	case r:
		deg = 60 * (int(g) - int(b)) / diff
	case g:
		deg = 120 + 60*(int(b)-int(r))/diff
	default:
		deg = 240 + 60*(int(r)-int(g))/diff
	}
	if deg < 0 {
		deg += 360
	}
	h = uint8(deg / 2)
	return h, s, v
}
