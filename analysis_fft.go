package main

import (
	"math"
	"runtime"

	"gonum.org/v1/gonum/dsp/fourier"
)

// PhaseMap holds per-pixel Fourier phase (radians, -pi..pi) and
// magnitude at the stimulus fundamental frequency for one direction's
// merged frame sequence (spec §4.7.1).
type PhaseMap struct {
	Width, Height int
	Phase         []float64
	Magnitude     []float64
}

// computePhaseMap runs a per-pixel real FFT over frames (one []float64
// intensity trace per pixel across the N frames of a direction) and
// extracts the bin nearest the stimulus fundamental cycles_per_sequence
// (spec §4.7.1: "the bin nearest cycles/N" where cycles is the number
// of bar sweeps across the recorded sequence and N is the frame count).
//
// frames is row-major [frameCount][width*height]float64 intensity,
// already resampled onto the stimulus-frame timeline by the caller
// (spec §4.4's sync merge).
func computePhaseMap(frames [][]float64, width, height int, cyclesPerSequence float64) (*PhaseMap, error) {
	n := len(frames)
	if n == 0 {
		return nil, newError(KindAnalysisFailure, "computePhaseMap", nil)
	}
	npix := width * height
	for _, f := range frames {
		if len(f) != npix {
			return nil, newError(KindAnalysisFailure, "computePhaseMap", nil)
		}
	}

	pm := &PhaseMap{Width: width, Height: height, Phase: make([]float64, npix), Magnitude: make([]float64, npix)}

	bin := int(math.Round(cyclesPerSequence))
	if bin < 0 {
		bin = 0
	}

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (height + workers - 1) / workers
	done := make(chan struct{}, workers)

	for w := 0; w < workers; w++ {
		y0 := w * rowsPerWorker
		y1 := y0 + rowsPerWorker
		if y1 > height {
			y1 = height
		}
		go func(y0, y1 int) {
			fft := fourier.NewFFT(n)
			trace := make([]float64, n)
			for y := y0; y < y1; y++ {
				for x := 0; x < width; x++ {
					i := y*width + x
					for t := 0; t < n; t++ {
						trace[t] = frames[t][i]
					}
					coeffs := fft.Coefficients(nil, trace)
					b := bin
					if b >= len(coeffs) {
						b = len(coeffs) - 1
					}
					c := coeffs[b]
					pm.Phase[i] = math.Atan2(imag(c), real(c))
					pm.Magnitude[i] = math.Hypot(real(c), imag(c)) / float64(n)
				}
			}
			done <- struct{}{}
		}(y0, y1)
	}
	for w := 0; w < workers; w++ {
		<-done
	}
	return pm, nil
}
