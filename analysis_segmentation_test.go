package main

import "testing"

func rectMask(width, height, x0, y0, x1, y1 int) []bool {
	mask := make([]bool, width*height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			mask[y*width+x] = true
		}
	}
	return mask
}

func TestDistanceTransform_ZeroAtBoundaryGrowsInward(t *testing.T) {
	const w, h = 21, 21
	mask := rectMask(w, h, 0, 0, w, h)
	dist := distanceTransform(mask, w, h)
	center := dist[(h/2)*w+(w/2)]
	corner := dist[0]
	if !(center > corner) {
		t.Errorf("expected center distance (%v) to exceed corner distance (%v)", center, corner)
	}
	if corner != 1 {
		t.Errorf("corner of a fully-filled mask should be distance 1 from the border, got %v", corner)
	}
}

func TestSegmentVisualAreas_TwoSeparatedBlobsYieldTwoAreas(t *testing.T) {
	const w, h = 60, 30
	mask := make([]bool, w*h)
	for _, m := range []struct{ x0, y0, x1, y1 int }{
		{2, 2, 26, 28},
		{34, 2, 58, 28},
	} {
		for y := m.y0; y < m.y1; y++ {
			for x := m.x0; x < m.x1; x++ {
				mask[y*w+x] = true
			}
		}
	}
	vfsRaw := make([]float64, w*h)
	for i, m := range mask {
		if m {
			vfsRaw[i] = 1
		}
	}
	vfs := &VisualFieldSignMap{Width: w, Height: h, Raw: vfsRaw, Magnitude: make([]float64, w*h), Mask: mask}

	areas, _, boundary := segmentVisualAreas(vfs)
	for i, b := range boundary {
		if b {
			t.Errorf("pixel %d marked boundary but no negative-sign region exists to intersect with", i)
		}
	}
	if len(areas) != 2 {
		t.Fatalf("expected 2 segmented areas, got %d", len(areas))
	}
	for _, a := range areas {
		if a.AreaPx < segMinAreaPixels {
			t.Errorf("area %d below minimum pixel count survived: %d", a.Label, a.AreaPx)
		}
		if a.DominantSign != 1 {
			t.Errorf("area %d dominant sign = %v, want +1", a.Label, a.DominantSign)
		}
		if a.SignConsistency != 1.0 {
			t.Errorf("area %d sign consistency = %v, want 1.0", a.Label, a.SignConsistency)
		}
	}
}

func TestComputeBoundaryMap_MarksOnlyAdjacentSignTransition(t *testing.T) {
	const w, h = 20, 5
	raw := make([]float64, w*h)
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			mask[i] = true
			if x < w/2 {
				raw[i] = 1
			} else {
				raw[i] = -1
			}
		}
	}
	vfs := &VisualFieldSignMap{Width: w, Height: h, Raw: raw, Magnitude: make([]float64, w*h), Mask: mask}

	boundary := computeBoundaryMap(vfs)
	sawBoundary := false
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			nearSplit := x >= w/2-2 && x <= w/2+1
			if boundary[i] {
				sawBoundary = true
				if !nearSplit {
					t.Errorf("pixel (%d,%d) far from the sign split marked boundary", x, y)
				}
			}
		}
	}
	if !sawBoundary {
		t.Error("expected at least one boundary pixel at the sign transition")
	}
}

func TestSegmentVisualAreas_LabeledPixelsAgreeWithBoundaryMap(t *testing.T) {
	const w, h = 60, 30
	raw := make([]float64, w*h)
	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			mask[i] = true
			if x < w/2 {
				raw[i] = 1
			} else {
				raw[i] = -1
			}
		}
	}
	vfs := &VisualFieldSignMap{Width: w, Height: h, Raw: raw, Magnitude: make([]float64, w*h), Mask: mask}

	_, labels, boundary := segmentVisualAreas(vfs)
	for i, label := range labels {
		if label > 0 && boundary[i] {
			t.Errorf("pixel %d has label %d but is also marked boundary", i, label)
		}
	}
}

func TestSummarizeAreas_DiscardsBelowMinimumArea(t *testing.T) {
	const w, h = 10, 10
	labels := make([]int, w*h)
	labels[0] = 1 // single-pixel region, far below segMinAreaPixels
	vfsRaw := make([]float64, w*h)
	vfsRaw[0] = 1
	areas := summarizeAreas(labels, vfsRaw, w, h)
	if len(areas) != 0 {
		t.Errorf("expected the tiny region to be discarded, got %d areas", len(areas))
	}
}

func TestSeedLocalMaxima_EnforcesMinimumSeparation(t *testing.T) {
	const w, h = 40, 40
	mask := rectMask(w, h, 0, 0, w, h)
	dist := distanceTransform(mask, w, h)
	seeds := seedLocalMaxima(dist, w, h)
	for i := 0; i < len(seeds); i++ {
		for j := i + 1; j < len(seeds); j++ {
			dx := float64(seeds[i][0] - seeds[j][0])
			dy := float64(seeds[i][1] - seeds[j][1])
			sep := dx*dx + dy*dy
			if sep < segMinSeedSeparationPx*segMinSeedSeparationPx {
				t.Errorf("seeds %v and %v are closer than the minimum separation", seeds[i], seeds[j])
			}
		}
	}
}
