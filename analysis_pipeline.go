package main

import "math"

// AnalysisResult bundles every output of one full analysis run (spec
// §4.7): the per-axis retinotopy maps (nil if that axis's directions
// were never recorded — absent, not fatal), the visual field sign map
// (nil if either axis is entirely missing), the segmented areas, and
// the reliable_pixel_fraction quality metric.
type AnalysisResult struct {
	Azimuth               *RetinotopyMap
	Altitude              *RetinotopyMap
	VFS                   *VisualFieldSignMap
	BoundaryMap           []bool
	AreaLabels            []int
	Areas                 []VisualArea
	ReliablePixelFraction float64
}

// AnalysisPipeline orchestrates phase extraction, bidirectional
// combination, smoothing, visual field sign, and segmentation (spec
// §4.7.1-4.7.5) over one completed acquisition's recorded frame
// sequences.
type AnalysisPipeline struct{}

func NewAnalysisPipeline() *AnalysisPipeline { return &AnalysisPipeline{} }

// Run executes the full pipeline. framesByDirection holds, for every
// direction actually recorded, the per-frame pixel-intensity sequence
// already resampled onto the stimulus timeline by the sync merge (spec
// §4.4); width/height describe that pixel grid (typically the camera's).
func (p *AnalysisPipeline) Run(params ParameterSnapshot, framesByDirection map[Direction][][]float64, width, height int) (*AnalysisResult, error) {
	if len(framesByDirection) == 0 {
		return nil, newError(KindAnalysisFailure, "Run", nil)
	}
	for dir, frames := range framesByDirection {
		for _, frame := range frames {
			for _, v := range frame {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, newError(KindAnalysisFailure, "Run", nil).withKeys([]string{string(dir)})
				}
			}
		}
	}

	cycles := float64(params.Acquisition.Cycles)

	phaseByDirection := make(map[Direction]*PhaseMap, len(framesByDirection))
	for dir, frames := range framesByDirection {
		pm, err := computePhaseMap(frames, width, height, cycles)
		if err != nil {
			return nil, err
		}
		phaseByDirection[dir] = pm
	}

	halfAz, halfAlt := FieldOfView(params.Monitor)
	result := &AnalysisResult{}

	azMap, err := p.combineAxis(phaseByDirection, DirLR, DirRL, params.Analysis.MagnitudeThreshold, -halfAz-params.Stimulus.BarWidthDeg, halfAz+params.Stimulus.BarWidthDeg)
	if err != nil {
		return nil, err
	}
	altMap, err := p.combineAxis(phaseByDirection, DirTB, DirBT, params.Analysis.MagnitudeThreshold, -halfAlt-params.Stimulus.BarWidthDeg, halfAlt+params.Stimulus.BarWidthDeg)
	if err != nil {
		return nil, err
	}

	// Reliability is measured before smoothing, which fills unreliable
	// (NaN) pixels from their neighbours.
	if azMap != nil && altMap != nil && width*height > 0 {
		reliable, total := 0, width*height
		for i := 0; i < total; i++ {
			if !math.IsNaN(azMap.DegreeMap[i]) && !math.IsNaN(altMap.DegreeMap[i]) {
				reliable++
			}
		}
		result.ReliablePixelFraction = float64(reliable) / float64(total)
	}

	if azMap != nil {
		azMap.DegreeMap = smoothCircularDeg(azMap.DegreeMap, width, height, params.Analysis.PhaseFilterSigma)
	}
	if altMap != nil {
		altMap.DegreeMap = smoothCircularDeg(altMap.DegreeMap, width, height, params.Analysis.PhaseFilterSigma)
	}
	result.Azimuth = azMap
	result.Altitude = altMap

	if azMap == nil || altMap == nil {
		logWarn("visual field sign skipped: one of azimuth/altitude axes has no recorded directions")
		return result, nil
	}

	vfs, err := computeVisualFieldSign(azMap.DegreeMap, altMap.DegreeMap, width, height, params.Analysis.VFSThreshold)
	if err != nil {
		return nil, err
	}
	result.VFS = vfs
	result.Areas, result.AreaLabels, result.BoundaryMap = segmentVisualAreas(vfs)

	return result, nil
}

// combineAxis builds the retinotopy map for one axis from whichever of
// its two directions were actually recorded: both present uses the
// delay-cancelling bidirectional combine, exactly one present falls
// back to direct scaling, and neither present is absent (nil, not an
// error) per spec §4.7.2's "missing direction for an axis" edge case.
func (p *AnalysisPipeline) combineAxis(phases map[Direction]*PhaseMap, fwd, rev Direction, magThreshold, startDeg, endDeg float64) (*RetinotopyMap, error) {
	f, hasFwd := phases[fwd]
	r, hasRev := phases[rev]
	switch {
	case hasFwd && hasRev:
		return combineBidirectional(f, r, magThreshold, startDeg, endDeg)
	case hasFwd:
		return combineSingleDirection(f, magThreshold, startDeg, endDeg), nil
	case hasRev:
		return combineSingleDirection(r, magThreshold, endDeg, startDeg), nil
	default:
		return nil, nil
	}
}
