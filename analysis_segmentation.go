package main

import "math"

// VisualArea is one watershed-segmented cortical region (spec §4.7.5).
type VisualArea struct {
	Label            int
	AreaPx           int
	CentroidX        float64
	CentroidY        float64
	DominantSign     float64 // +1 or -1
	SignConsistency  float64 // fraction of pixels matching DominantSign
	BBoxMinX, BBoxMinY int
	BBoxMaxX, BBoxMaxY int
}

const (
	segMinSeedSeparationPx = 10
	segMinSeedDistance     = 5.0
	segMinAreaPixels       = 100
)

// distanceTransform computes, for every true pixel in mask, its
// chamfer distance (step cost 1, diagonal cost sqrt(2)) to the nearest
// false pixel, the area outside the image counting as false, via the
// classic two-pass forward/backward sweep (spec §4.7.4). No
// segmentation/distance-transform library appears anywhere in the
// retrieval pack, so this is hand-rolled (see DESIGN.md).
func distanceTransform(mask []bool, width, height int) []float64 {
	const (
		costStraight = 1.0
		costDiagonal = 1.41421356
	)
	dist := make([]float64, width*height)
	inf := math.Inf(1)
	for i, m := range mask {
		if m {
			dist[i] = inf
		} else {
			dist[i] = 0
		}
	}

	at := func(x, y int) float64 {
		if x < 0 || x >= width || y < 0 || y >= height {
			return 0
		}
		return dist[y*width+x]
	}

	// Forward pass: top-left to bottom-right.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !mask[y*width+x] {
				continue
			}
			best := dist[y*width+x]
			best = math.Min(best, at(x-1, y)+costStraight)
			best = math.Min(best, at(x, y-1)+costStraight)
			best = math.Min(best, at(x-1, y-1)+costDiagonal)
			best = math.Min(best, at(x+1, y-1)+costDiagonal)
			dist[y*width+x] = best
		}
	}
	// Backward pass: bottom-right to top-left.
	for y := height - 1; y >= 0; y-- {
		for x := width - 1; x >= 0; x-- {
			if !mask[y*width+x] {
				continue
			}
			best := dist[y*width+x]
			best = math.Min(best, at(x+1, y)+costStraight)
			best = math.Min(best, at(x, y+1)+costStraight)
			best = math.Min(best, at(x+1, y+1)+costDiagonal)
			best = math.Min(best, at(x-1, y+1)+costDiagonal)
			dist[y*width+x] = best
		}
	}
	for i, d := range dist {
		if math.IsInf(d, 1) {
			dist[i] = 0
		}
	}
	return dist
}

// seedLocalMaxima picks watershed seeds as local maxima of dist that
// clear both a minimum value (segMinSeedDistance) and a minimum
// pairwise separation (segMinSeedSeparationPx) from every
// already-accepted seed, scanning in descending distance order so the
// strongest interior points win (spec §4.7.4).
func seedLocalMaxima(dist []float64, width, height int) [][2]int {
	type cand struct {
		x, y int
		d    float64
	}
	cands := make([]cand, 0, len(dist))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := dist[y*width+x]
			if d < segMinSeedDistance {
				continue
			}
			if isLocalMax(dist, width, height, x, y) {
				cands = append(cands, cand{x, y, d})
			}
		}
	}
	// Descending by distance (simple insertion sort; candidate counts
	// are small relative to image size).
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].d > cands[j-1].d; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}

	var seeds [][2]int
	for _, c := range cands {
		tooClose := false
		for _, s := range seeds {
			dx, dy := float64(c.x-s[0]), float64(c.y-s[1])
			if math.Hypot(dx, dy) < segMinSeedSeparationPx {
				tooClose = true
				break
			}
		}
		if !tooClose {
			seeds = append(seeds, [2]int{c.x, c.y})
		}
	}
	return seeds
}

func isLocalMax(dist []float64, width, height, x, y int) bool {
	v := dist[y*width+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= width || ny < 0 || ny >= height {
				continue
			}
			if dist[ny*width+nx] > v {
				return false
			}
		}
	}
	return true
}

// watershedLabel grows each seed outward by simulated immersion on the
// inverted distance surface (higher distance floods first), bounded by
// mask, producing a label-per-pixel map (0 = unlabeled/background).
func watershedLabel(mask []bool, dist []float64, width, height int, seeds [][2]int) []int {
	labels := make([]int, width*height)
	if len(seeds) == 0 {
		return labels
	}

	type qitem struct {
		x, y, label int
		priority    float64
	}
	// Bucket queue keyed by descending distance, coarse-quantized;
	// ties broken FIFO within a bucket. A full priority heap is
	// unnecessary here since dist values are bounded and the region
	// counts are modest.
	buckets := make(map[int][]qitem)
	maxBucket := 0
	bucketOf := func(d float64) int { return int(d * 4) }

	push := func(it qitem) {
		b := bucketOf(it.priority)
		buckets[b] = append(buckets[b], it)
		if b > maxBucket {
			maxBucket = b
		}
	}

	for i, s := range seeds {
		label := i + 1
		idx := s[1]*width + s[0]
		if labels[idx] != 0 {
			continue
		}
		labels[idx] = label
		push(qitem{s[0], s[1], label, dist[idx]})
	}

	for b := maxBucket; b >= 0; b-- {
		queue := buckets[b]
		for qi := 0; qi < len(queue); qi++ {
			it := queue[qi]
			neighbors := [4][2]int{{it.x - 1, it.y}, {it.x + 1, it.y}, {it.x, it.y - 1}, {it.x, it.y + 1}}
			for _, n := range neighbors {
				nx, ny := n[0], n[1]
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				ni := ny*width + nx
				if !mask[ni] || labels[ni] != 0 {
					continue
				}
				labels[ni] = it.label
				nb := qitem{nx, ny, it.label, dist[ni]}
				if bucketOf(nb.priority) >= b {
					queue = append(queue, nb)
				} else {
					push(nb)
				}
			}
		}
	}
	return labels
}

// summarizeAreas aggregates labeled pixels into VisualArea records,
// discarding any label whose pixel count falls below
// segMinAreaPixels (spec §4.7.5), and reports each surviving area's
// dominant VFS sign and the fraction of its pixels agreeing with it.
func summarizeAreas(labels []int, vfsRaw []float64, width, height int) []VisualArea {
	type acc struct {
		count                  int
		sumX, sumY             float64
		posCount, negCount     int
		minX, minY, maxX, maxY int
	}
	accs := make(map[int]*acc)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			label := labels[i]
			if label == 0 {
				continue
			}
			a, ok := accs[label]
			if !ok {
				a = &acc{minX: x, minY: y, maxX: x, maxY: y}
				accs[label] = a
			}
			a.count++
			a.sumX += float64(x)
			a.sumY += float64(y)
			if vfsRaw[i] > 0 {
				a.posCount++
			} else if vfsRaw[i] < 0 {
				a.negCount++
			}
			if x < a.minX {
				a.minX = x
			}
			if x > a.maxX {
				a.maxX = x
			}
			if y < a.minY {
				a.minY = y
			}
			if y > a.maxY {
				a.maxY = y
			}
		}
	}

	var areas []VisualArea
	for label, a := range accs {
		if a.count < segMinAreaPixels {
			continue
		}
		dominant := 1.0
		consistent := a.posCount
		if a.negCount > a.posCount {
			dominant = -1.0
			consistent = a.negCount
		}
		areas = append(areas, VisualArea{
			Label:           label,
			AreaPx:          a.count,
			CentroidX:       a.sumX / float64(a.count),
			CentroidY:       a.sumY / float64(a.count),
			DominantSign:    dominant,
			SignConsistency: float64(consistent) / float64(a.count),
			BBoxMinX:        a.minX, BBoxMinY: a.minY,
			BBoxMaxX: a.maxX, BBoxMaxY: a.maxY,
		})
	}
	return areas
}

// dilate grows mask by one 4-connected step (a cross structuring
// element), matching the single binary_dilation pass the source
// analysis performs before intersecting sign regions.
func dilate(mask []bool, width, height int) []bool {
	out := make([]bool, len(mask))
	at := func(x, y int) bool {
		if x < 0 || x >= width || y < 0 || y >= height {
			return false
		}
		return mask[y*width+x]
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out[y*width+x] = at(x, y) || at(x-1, y) || at(x+1, y) || at(x, y-1) || at(x, y+1)
		}
	}
	return out
}

// computeBoundaryMap marks pixels where the dilated positive-VFS
// region and the dilated negative-VFS region overlap (spec §4.7.4):
// the sign transitions that separate neighboring cortical areas.
// Sign regions are first restricted to the statistically reliable
// mask, since an unfiltered raw_vfs sign is meaningless noise.
func computeBoundaryMap(vfs *VisualFieldSignMap) []bool {
	n := vfs.Width * vfs.Height
	positive := make([]bool, n)
	negative := make([]bool, n)
	for i, s := range vfs.Raw {
		if !vfs.Mask[i] {
			continue
		}
		switch {
		case s > 0:
			positive[i] = true
		case s < 0:
			negative[i] = true
		}
	}
	posDilated := dilate(positive, vfs.Width, vfs.Height)
	negDilated := dilate(negative, vfs.Width, vfs.Height)
	boundary := make([]bool, n)
	for i := range boundary {
		boundary[i] = posDilated[i] && negDilated[i]
	}
	return boundary
}

// segmentVisualAreas runs the full boundary/segmentation stage (spec
// §4.7.4-4.7.5): the distance transform runs over the non-boundary
// mask (the whole frame minus the sign-transition band), and
// watershed growth is bounded to non-boundary pixels that are also
// statistically reliable, so every surviving label agrees with
// boundary_map == false (spec §4.7's testable properties). Returns
// the summarized areas alongside the raw per-pixel label and boundary
// fields spec §3 lists directly on AnalysisResult.
func segmentVisualAreas(vfs *VisualFieldSignMap) ([]VisualArea, []int, []bool) {
	boundary := computeBoundaryMap(vfs)
	n := vfs.Width * vfs.Height
	nonBoundary := make([]bool, n)
	growMask := make([]bool, n)
	for i, b := range boundary {
		nonBoundary[i] = !b
		growMask[i] = !b && vfs.Mask[i]
	}
	dist := distanceTransform(nonBoundary, vfs.Width, vfs.Height)
	seeds := seedLocalMaxima(dist, vfs.Width, vfs.Height)
	labels := watershedLabel(growMask, dist, vfs.Width, vfs.Height, seeds)
	areas := summarizeAreas(labels, vfs.Raw, vfs.Width, vfs.Height)

	keep := make(map[int]bool, len(areas))
	for _, a := range areas {
		keep[a.Label] = true
	}
	for i, l := range labels {
		if l != 0 && !keep[l] {
			labels[i] = 0
		}
	}
	return areas, labels, boundary
}
