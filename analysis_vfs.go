package main

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// VisualFieldSignMap holds the raw signed-Jacobian field, its
// magnitude, and the statistically-thresholded boolean mask used to
// seed segmentation (spec §4.7.4).
type VisualFieldSignMap struct {
	Width, Height int
	Raw           []float64 // sign(-1, 0, +1); 0 where either gradient was NaN
	Magnitude     []float64 // |Jacobian|, for percentile thresholding
	Mask          []bool    // true where |Jacobian| is in the top (1-threshold) fraction
}

// computeVisualFieldSign derives the Jacobian determinant sign of the
// azimuth/altitude gradient pair at every pixel via central
// differences (spec §4.7.4):
//
//	J = dAz/dx * dEl/dy - dAz/dy * dEl/dx
//	sign = sign(J)
//
// then keeps only the pixels whose |J| sits above the
// vfsPercentileThreshold-th percentile (e.g. 0.95 keeps the top 5%),
// computed via gonum/stat.Quantile, per spec §4.7.4's statistical
// boundary-strength filter.
func computeVisualFieldSign(azimuth, altitude []float64, width, height int, vfsPercentileThreshold float64) (*VisualFieldSignMap, error) {
	n := width * height
	if len(azimuth) != n || len(altitude) != n {
		return nil, newError(KindAnalysisFailure, "computeVisualFieldSign", nil)
	}

	out := &VisualFieldSignMap{Width: width, Height: height, Raw: make([]float64, n), Magnitude: make([]float64, n)}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			dAzDx, okX1 := centralDiff(azimuth, width, height, x, y, true)
			dElDy, okY1 := centralDiff(altitude, width, height, x, y, false)
			dAzDy, okY2 := centralDiff(azimuth, width, height, x, y, false)
			dElDx, okX2 := centralDiff(altitude, width, height, x, y, true)
			if !okX1 || !okY1 || !okY2 || !okX2 {
				out.Raw[i] = 0
				out.Magnitude[i] = math.NaN()
				continue
			}
			j := dAzDx*dElDy - dAzDy*dElDx
			out.Raw[i] = math.Copysign(1, j)
			if j == 0 {
				out.Raw[i] = 0
			}
			out.Magnitude[i] = math.Abs(j)
		}
	}

	finite := make([]float64, 0, n)
	for _, m := range out.Magnitude {
		if !math.IsNaN(m) {
			finite = append(finite, m)
		}
	}
	out.Mask = make([]bool, n)
	if len(finite) == 0 {
		return out, nil
	}
	sort.Float64s(finite)
	cutoff := stat.Quantile(vfsPercentileThreshold, stat.Empirical, finite, nil)
	for i, m := range out.Magnitude {
		out.Mask[i] = !math.IsNaN(m) && m >= cutoff
	}
	return out, nil
}

// centralDiff computes the central difference of field at (x,y) along
// x (horizontal=true) or y (horizontal=false), falling back to a
// one-sided difference at the grid boundary. Returns ok=false if every
// sample it needs is NaN (an unreliable-pixel region, spec §4.7.2).
func centralDiff(field []float64, width, height, x, y int, horizontal bool) (float64, bool) {
	get := func(xx, yy int) (float64, bool) {
		if xx < 0 || xx >= width || yy < 0 || yy >= height {
			return 0, false
		}
		v := field[yy*width+xx]
		if math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}

	var lo, hi int
	if horizontal {
		lo, hi = x-1, x+1
	} else {
		lo, hi = y-1, y+1
	}

	var loVal, hiVal float64
	var loOK, hiOK bool
	if horizontal {
		loVal, loOK = get(lo, y)
		hiVal, hiOK = get(hi, y)
	} else {
		loVal, loOK = get(x, lo)
		hiVal, hiOK = get(x, hi)
	}

	switch {
	case loOK && hiOK:
		return (hiVal - loVal) / 2, true
	case hiOK:
		center, cOK := centerVal(field, width, height, x, y)
		if !cOK {
			return 0, false
		}
		return hiVal - center, true
	case loOK:
		center, cOK := centerVal(field, width, height, x, y)
		if !cOK {
			return 0, false
		}
		return center - loVal, true
	default:
		return 0, false
	}
}

func centerVal(field []float64, width, height, x, y int) (float64, bool) {
	if x < 0 || x >= width || y < 0 || y >= height {
		return 0, false
	}
	v := field[y*width+x]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
