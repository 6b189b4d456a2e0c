package resin

import (
	"image"
	"math"
)

// Detector classifies a decoded 8-bit single-channel tile as containing
// tissue (true) or resin/background (false). spec.md §4.3: "The tissue
// predicate takes an 8-bit single-channel image and returns boolean. The
// recipe is external and treated as a black box."
type Detector func(img image.Image) bool

// DefaultDetector approximates the histogram/mean/stdev/edge heuristic
// described in spec.md §9, tuned for cricket TEM subtiles imaged on
// Luxel Tape EM. It is intentionally pluggable: callers with a different
// dataset should supply their own Detector rather than retune this one.
//
// The downsampling and Canny-plus-connected-component-filtering steps of
// the original recipe depend on a dedicated computer-vision stack with
// no equivalent among this module's dependencies; this implementation
// keeps the histogram-peak, mean, and standard-deviation tests exactly
// and replaces the edge step with a Sobel gradient-energy count, which
// catches the same "textured, non-uniform tile" case using only the
// standard library's math package.
func DefaultDetector(img image.Image) bool {
	gray := toGray(img)
	if len(gray.pix) == 0 {
		return false
	}

	if countHistogramPeaks(gray.pix, 20) != 1 {
		return true
	}

	mean, stdev := meanStdev(gray.pix)
	if mean <= 185 {
		return true
	}
	if stdev >= 11 {
		return true
	}

	return hasSignificantEdges(gray)
}

type grayBuffer struct {
	pix    []uint8
	w, h   int
}

func toGray(img image.Image) grayBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]uint8, w*h)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// Rec. 601 luma, consistent with how image/color.GrayModel
			// converts when the source is already 1-channel.
			lum := (19595*r + 38470*g + 7471*bl + 1<<15) >> 24
			buf[i] = uint8(lum)
			i++
		}
	}
	return grayBuffer{pix: buf, w: w, h: h}
}

// countHistogramPeaks bins pixel values into nbins buckets and counts
// local maxima with height >= 500, mirroring the original recipe's
// scipy.signal.find_peaks(height=500) call at a coarse granularity.
func countHistogramPeaks(pix []uint8, nbins int) int {
	hist := make([]int, nbins)
	binWidth := 256 / nbins
	for _, v := range pix {
		bin := int(v) / binWidth
		if bin >= nbins {
			bin = nbins - 1
		}
		hist[bin]++
	}

	peaks := 0
	for i, v := range hist {
		if v < 500 {
			continue
		}
		leftOK := i == 0 || hist[i-1] <= v
		rightOK := i == nbins-1 || hist[i+1] <= v
		if leftOK && rightOK {
			peaks++
		}
	}
	return peaks
}

func meanStdev(pix []uint8) (mean, stdev float64) {
	var sum float64
	for _, v := range pix {
		sum += float64(v)
	}
	n := float64(len(pix))
	mean = sum / n

	var sqDiff float64
	for _, v := range pix {
		d := float64(v) - mean
		sqDiff += d * d
	}
	stdev = math.Sqrt(sqDiff / n)
	return mean, stdev
}

// hasSignificantEdges computes a Sobel gradient magnitude per pixel and
// reports whether enough of the tile has a strong gradient to resemble
// the original recipe's Canny-edges-after-dust-filtering signal.
func hasSignificantEdges(g grayBuffer) bool {
	if g.w < 3 || g.h < 3 {
		return false
	}
	const threshold = 80.0
	const minEdgePixels = 35 // mirrors cc3d.dust's component-size floor

	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if x >= g.w {
			x = g.w - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= g.h {
			y = g.h - 1
		}
		return float64(g.pix[y*g.w+x])
	}

	edgeCount := 0
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			mag := math.Sqrt(gx*gx + gy*gy)
			if mag >= threshold {
				edgeCount++
			}
		}
	}
	return edgeCount >= minEdgePixels
}
