package imaging

import "image"

// orientationConfidenceThreshold is the minimum detector confidence required
// before a rotation is actually applied. Below it the image is left as-is
// and a warning is emitted instead of guessing.
const orientationConfidenceThreshold = 0.60

// profileRatioUpright: when the row-projection variance exceeds the column
// variance by at least this factor, the text lines run horizontally and the
// image is treated as upright.
const profileRatioUpright = 2.0

// detectOrientation estimates gross rotation (0 or 90 degrees) from
// projection profiles of the inked pixels. Horizontal text lines produce a
// strongly banded row profile; a sideways card flips that relationship.
// A 180-degree flip is indistinguishable to this heuristic and is reported
// as upright with low impact: Tesseract's own OSD copes with it far better
// than a guess here would. The profiles also cannot tell 90 from 270
// degrees, so every sideways detection is corrected clockwise; a card
// rotated the other way comes out inverted, which the caller is warned
// about when the correction is applied.
func detectOrientation(g *image.Gray) (rotation int, confidence float64) {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 16 || h < 16 {
		return 0, 0
	}

	threshold := inkThreshold(g)

	rowInk := make([]float64, h)
	colInk := make([]float64, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.Pix[y*g.Stride+x] < threshold {
				rowInk[y]++
				colInk[x]++
			}
		}
	}
	// Normalize by the opposing dimension so the two profiles are comparable
	// on non-square images.
	for y := range rowInk {
		rowInk[y] /= float64(w)
	}
	for x := range colInk {
		colInk[x] /= float64(h)
	}

	rowVar := variance(rowInk)
	colVar := variance(colInk)
	if rowVar == 0 && colVar == 0 {
		return 0, 0
	}

	if rowVar >= colVar {
		ratio := safeRatio(rowVar, colVar)
		if ratio >= profileRatioUpright {
			return 0, ratioConfidence(ratio)
		}
		return 0, ratioConfidence(ratio) * 0.5
	}

	ratio := safeRatio(colVar, rowVar)
	if ratio >= profileRatioUpright {
		return 90, ratioConfidence(ratio)
	}
	return 90, ratioConfidence(ratio) * 0.5
}

// inkThreshold picks a binarization threshold below the mean intensity, so
// dark glyphs count as ink on typical light card backgrounds.
func inkThreshold(g *image.Gray) uint8 {
	var sum uint64
	for _, v := range g.Pix {
		sum += uint64(v)
	}
	if len(g.Pix) == 0 {
		return 128
	}
	mean := sum / uint64(len(g.Pix))
	threshold := mean * 7 / 8
	if threshold == 0 {
		threshold = 1
	}
	return uint8(threshold)
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, v := range xs {
		mean += v
	}
	mean /= float64(len(xs))

	var acc float64
	for _, v := range xs {
		d := v - mean
		acc += d * d
	}
	return acc / float64(len(xs))
}

func safeRatio(num, den float64) float64 {
	const eps = 1e-9
	if den < eps {
		den = eps
	}
	return num / den
}

// ratioConfidence maps a profile-variance ratio onto [0,1): ratio 1 is pure
// ambiguity, large ratios approach certainty.
func ratioConfidence(ratio float64) float64 {
	if ratio <= 1 {
		return 0
	}
	c := 1 - 1/ratio
	if c > 0.99 {
		c = 0.99
	}
	return c
}

// rotateGray rotates by the given number of degrees (90, 180, or 270,
// clockwise); anything else returns the input unchanged.
func rotateGray(g *image.Gray, degrees int) *image.Gray {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	switch degrees {
	case 90:
		out := image.NewGray(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[x*out.Stride+(h-1-y)] = g.Pix[y*g.Stride+x]
			}
		}
		return out
	case 180:
		out := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[(h-1-y)*out.Stride+(w-1-x)] = g.Pix[y*g.Stride+x]
			}
		}
		return out
	case 270:
		out := image.NewGray(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[(w-1-x)*out.Stride+y] = g.Pix[y*g.Stride+x]
			}
		}
		return out
	default:
		return g
	}
}
