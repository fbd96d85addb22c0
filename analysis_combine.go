package main

import "math"

// RetinotopyMap holds the combined azimuth or altitude map in degrees,
// after bidirectional forward/reverse phase combination (spec §4.7.2).
type RetinotopyMap struct {
	Width, Height int
	DegreeMap     []float64 // NaN where below magnitude threshold in both directions
}

// combineBidirectional merges a forward-direction and reverse-direction
// PhaseMap into a single delay-free retinotopy map using the complex
// unit-vector average from Kalatsky & Stryker 2003 §2.3 (the Open
// Question this repo resolves toward, see DESIGN.md):
//
//	phase_combined = atan2(sin(phi_f)+sin(phi_r), cos(phi_f)+cos(phi_r))
//
// which cancels the constant hemodynamic delay present identically in
// both sweep directions. The combined phase is then linearly mapped to
// degrees across the direction's angular span. Pixels whose magnitude
// falls below magnitudeThreshold in both directions are marked NaN
// (unreliable, spec §4.7.2 edge case).
func combineBidirectional(fwd, rev *PhaseMap, magnitudeThreshold float64, startDeg, endDeg float64) (*RetinotopyMap, error) {
	if fwd.Width != rev.Width || fwd.Height != rev.Height {
		return nil, newError(KindAnalysisFailure, "combineBidirectional", nil)
	}
	n := fwd.Width * fwd.Height
	out := &RetinotopyMap{Width: fwd.Width, Height: fwd.Height, DegreeMap: make([]float64, n)}

	for i := 0; i < n; i++ {
		if fwd.Magnitude[i] < magnitudeThreshold && rev.Magnitude[i] < magnitudeThreshold {
			out.DegreeMap[i] = math.NaN()
			continue
		}
		sf, cf := math.Sin(fwd.Phase[i]), math.Cos(fwd.Phase[i])
		sr, cr := math.Sin(rev.Phase[i]), math.Cos(rev.Phase[i])
		combined := math.Atan2(sf+sr, cf+cr)

		// combined is in (-pi, pi]; map linearly onto [startDeg, endDeg]
		// the same way AngleAt parameterizes a sweep, treating combined
		// phase as a fraction of the full angular span traversed.
		frac := (combined + math.Pi) / (2 * math.Pi)
		out.DegreeMap[i] = startDeg + frac*(endDeg-startDeg)
	}
	return out, nil
}

// combineSingleDirection is the fallback for an axis with only one
// recorded direction (spec §4.7.2 edge case: "missing direction for an
// axis is absent, not fatal" — here the axis IS present but only one
// of its two directions was acquired, so no delay cancellation is
// possible and the raw phase is scaled directly).
func combineSingleDirection(pm *PhaseMap, magnitudeThreshold float64, startDeg, endDeg float64) *RetinotopyMap {
	n := pm.Width * pm.Height
	out := &RetinotopyMap{Width: pm.Width, Height: pm.Height, DegreeMap: make([]float64, n)}
	for i := 0; i < n; i++ {
		if pm.Magnitude[i] < magnitudeThreshold {
			out.DegreeMap[i] = math.NaN()
			continue
		}
		frac := (pm.Phase[i] + math.Pi) / (2 * math.Pi)
		out.DegreeMap[i] = startDeg + frac*(endDeg-startDeg)
	}
	return out
}
