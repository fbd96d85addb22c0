package main

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette/moreland"
)

// renderPhaseCyclic paints a phase field (radians, -pi..pi) as hue on
// an HSL wheel, since phase wraps: a diverging colormap would show a
// false discontinuity at the wrap boundary. Grounded on the HSL
// conversion used for per-line coloring in the lidar grid plotter;
// reused here as a genuine cyclic colormap rather than a discrete
// line-color palette.
func renderPhaseCyclic(field []float64, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := field[y*width+x]
			if math.IsNaN(v) {
				img.Set(x, y, color.RGBA{A: 255})
				continue
			}
			hue := (v + math.Pi) / (2 * math.Pi)
			r, g, b := hslToRGB(hue, 0.8, 0.5)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

// renderVFSMap paints the visual field sign's raw signed field with a
// diverging blue/red colormap via gonum/plot/palette/moreland, scaled
// to [-1, 1].
func renderVFSMap(vfs *VisualFieldSignMap) (*image.RGBA, error) {
	pal := moreland.SmoothBlueRed()
	if err := pal.SetMin(-1); err != nil {
		return nil, newError(KindAnalysisFailure, "renderVFSMap", err)
	}
	if err := pal.SetMax(1); err != nil {
		return nil, newError(KindAnalysisFailure, "renderVFSMap", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, vfs.Width, vfs.Height))
	for y := 0; y < vfs.Height; y++ {
		for x := 0; x < vfs.Width; x++ {
			i := y*vfs.Width + x
			if !vfs.Mask[i] {
				img.Set(x, y, color.RGBA{A: 255})
				continue
			}
			c, err := pal.At(vfs.Raw[i])
			if err != nil {
				return nil, newError(KindAnalysisFailure, "renderVFSMap", err)
			}
			img.Set(x, y, c)
		}
	}
	return img, nil
}

// renderAreaMap paints each segmented area with a distinct hue spaced
// around the color wheel, the same spacing scheme the lidar grid
// plotter uses to keep per-series lines visually distinct.
func renderAreaMap(areas []VisualArea, labels []int, width, height int) *image.RGBA {
	colors := make(map[int]color.RGBA, len(areas))
	for i, a := range areas {
		hue := float64(i) / math.Max(1, float64(len(areas)))
		r, g, b := hslToRGB(hue, 0.6, 0.55)
		colors[a.Label] = color.RGBA{R: r, G: g, B: b, A: 255}
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			label := labels[y*width+x]
			c, ok := colors[label]
			if !ok {
				img.Set(x, y, color.RGBA{A: 255})
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// hslToRGB converts HSL to RGB (0-255 range), matching the lidar grid
// plotter's per-series color spacing.
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64
	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}
	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}
