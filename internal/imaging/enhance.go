package imaging

import "image"

// Percentiles used for contrast stretching. Clipping the extremes keeps a
// few specular pixels from wasting the dynamic range.
const (
	contrastLowPercentile  = 0.02
	contrastHighPercentile = 0.98
)

// stretchContrast rescales the intensity histogram toward the full dynamic
// range. Scanned cards routinely occupy a narrow mid-gray band; stretching
// sharpens the text/background separation Tesseract binarizes on.
func stretchContrast(g *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}

	total := len(g.Pix)
	if total == 0 {
		return g
	}

	low, high := percentileBounds(hist[:], total)
	if high <= low {
		return g
	}

	out := image.NewGray(g.Bounds())
	scale := 255.0 / float64(high-low)
	for i, v := range g.Pix {
		switch {
		case int(v) <= low:
			out.Pix[i] = 0
		case int(v) >= high:
			out.Pix[i] = 255
		default:
			out.Pix[i] = uint8(float64(int(v)-low)*scale + 0.5)
		}
	}
	return out
}

func percentileBounds(hist []int, total int) (low, high int) {
	lowTarget := int(float64(total) * contrastLowPercentile)
	highTarget := int(float64(total) * contrastHighPercentile)

	cum := 0
	low, high = 0, 255
	for i, c := range hist {
		cum += c
		if cum <= lowTarget {
			low = i
		}
		if cum <= highTarget {
			high = i
		}
	}
	return low, high
}

// denoiseDelta bounds which neighbors participate in smoothing; pixels that
// differ more than this from the center are treated as an edge and skipped.
const denoiseDelta = 32

// denoise applies a 3x3 local-averaging pass that preserves edges: only
// neighbors within denoiseDelta of the center contribute, so glyph borders
// stay crisp while sensor noise in flat regions is averaged out.
func denoise(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(g.Pix[y*g.Stride+x])
			sum, count := center, 1
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					v := int(g.Pix[ny*g.Stride+nx])
					if abs(v-center) <= denoiseDelta {
						sum += v
						count++
					}
				}
			}
			out.Pix[y*out.Stride+x] = uint8((sum + count/2) / count)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
