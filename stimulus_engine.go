package main

import (
	"math"
	"runtime"
	"sync/atomic"
)

// stimulusSnapshot is the precomputed, immutable state a render call
// reads. configure builds a new one and atomically swaps the pointer
// StimulusEngine.current holds — copy-on-write, so an in-flight render
// always sees one consistent snapshot even while a concurrent
// configure is building the next (spec §4.3/§5).
type stimulusSnapshot struct {
	monitor  MonitorParams
	stimulus StimulusParams
	grid     *FieldGrid
	base     []bool // base checkerboard parity, true = "on" phase
}

// StimulusEngine renders deterministic per-frame drifting-checkerboard
// luminance frames over spherical coordinates (spec §4.3).
type StimulusEngine struct {
	current atomic.Pointer[stimulusSnapshot]
}

func NewStimulusEngine() *StimulusEngine {
	return &StimulusEngine{}
}

// Ready reports whether configure has produced a usable snapshot.
func (e *StimulusEngine) Ready() bool {
	return e.current.Load() != nil
}

// Configure (re)builds the precomputed grids from the current
// monitor+stimulus parameters. Clamps contrast down to background
// luminance (logging the clamp) rather than producing negative-clamped,
// invisible checkers, per spec §4.3 validation.
func (e *StimulusEngine) Configure(snap ParameterSnapshot) error {
	if bad := validateMonitor(snap.Monitor); len(bad) > 0 {
		return newError(KindEngineNotReady, "Configure", nil)
	}
	stim := snap.Stimulus
	if stim.BackgroundLuminance < stim.Contrast {
		logError("stimulus contrast %.3f exceeds background %.3f; clamping", stim.Contrast, stim.BackgroundLuminance)
		stim.Contrast = stim.BackgroundLuminance
	}

	grid := buildFieldGrid(snap.Monitor, runtime.NumCPU())
	base := make([]bool, len(grid.Azimuth))
	checker := stim.CheckerSizeDeg
	if checker <= 0 {
		checker = 1
	}
	for i := range base {
		azBin := math.Floor(grid.Azimuth[i] / checker)
		altBin := math.Floor(grid.Altitude[i] / checker)
		base[i] = math.Mod(azBin+altBin, 2) != 0
	}

	e.current.Store(&stimulusSnapshot{
		monitor:  snap.Monitor,
		stimulus: stim,
		grid:     grid,
		base:     base,
	})
	return nil
}

// FramesPerSweep computes the total frame count for one sweep of
// direction: the bar must travel its full start-to-end span
// (2*(fov_half + bar_width)) at drift_speed_deg_per_sec, sampled at
// monitor.fps. Matches S2: round((140+2*20)/9 * 60) == 1200.
func (e *StimulusEngine) FramesPerSweep(dir Direction) (int, error) {
	snap := e.current.Load()
	if snap == nil {
		return 0, newError(KindEngineNotReady, "FramesPerSweep", nil)
	}
	if !dir.Valid() {
		return 0, newError(KindBadDirection, "FramesPerSweep", nil)
	}
	halfAz, halfAlt := FieldOfView(snap.monitor)
	var fovHalf float64
	if dir.Axis() == "azimuth" {
		fovHalf = halfAz
	} else {
		fovHalf = halfAlt
	}
	totalDeg := 2 * (fovHalf + snap.stimulus.BarWidthDeg)
	seconds := totalDeg / snap.stimulus.DriftSpeedDegPerSec
	return int(math.Round(seconds * snap.monitor.FPS)), nil
}

// sweepBounds returns the start/end coordinate (azimuth or altitude,
// per dir.Axis()) for dir, including the bar_width off-screen
// extension on both ends so the bar fully enters and exits (spec §3).
func sweepBounds(dir Direction, snap *stimulusSnapshot) (start, end float64) {
	halfAz, halfAlt := FieldOfView(snap.monitor)
	var fovHalf float64
	if dir.Axis() == "azimuth" {
		fovHalf = halfAz
	} else {
		fovHalf = halfAlt
	}
	extent := fovHalf + snap.stimulus.BarWidthDeg
	if dir.Polarity() > 0 {
		return -extent, extent
	}
	return extent, -extent
}

// AngleAt linearly interpolates the bar's position at frame i of N
// total frames in direction dir, from start_angle to end_angle.
func (e *StimulusEngine) AngleAt(dir Direction, i, n int) (float64, error) {
	snap := e.current.Load()
	if snap == nil {
		return 0, newError(KindEngineNotReady, "AngleAt", nil)
	}
	if !dir.Valid() {
		return 0, newError(KindBadDirection, "AngleAt", nil)
	}
	if n <= 1 {
		start, _ := sweepBounds(dir, snap)
		return start, nil
	}
	start, end := sweepBounds(dir, snap)
	t := float64(i) / float64(n-1)
	return start + t*(end-start), nil
}

// Render computes the luminance frame for (direction, frameIndex) out
// of a sweep of n total frames. Phase flips at strobe_rate_hz;
// checker value is background +/- contrast depending on base XOR
// phase_flip; when showBarMask, pixels outside the bar render as
// background.
func (e *StimulusEngine) Render(dir Direction, frameIndex, n int, showBarMask bool) ([]byte, int, int, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, 0, 0, newError(KindEngineNotReady, "Render", nil)
	}
	if !dir.Valid() {
		return nil, 0, 0, newError(KindBadDirection, "Render", nil)
	}

	angle, err := e.AngleAt(dir, frameIndex, n)
	if err != nil {
		return nil, 0, 0, err
	}

	fps := snap.monitor.FPS
	strobe := snap.stimulus.StrobeRateHz
	framesPerPhase := fps / strobe
	if framesPerPhase <= 0 {
		framesPerPhase = 1
	}
	phaseFlip := math.Mod(float64(frameIndex)/framesPerPhase, 2) >= 1.0

	w, h := snap.grid.Width, snap.grid.Height
	frame := make([]byte, w*h)
	bg := snap.stimulus.BackgroundLuminance
	contrast := snap.stimulus.Contrast
	halfBar := snap.stimulus.BarWidthDeg / 2

	bgByte := toLuminanceByte(bg)

	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (h + workers - 1) / workers
	done := make(chan struct{}, workers)
	for wk := 0; wk < workers; wk++ {
		y0 := wk * rowsPerWorker
		y1 := y0 + rowsPerWorker
		if y1 > h {
			y1 = h
		}
		go func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				for x := 0; x < w; x++ {
					i := y*w + x
					if showBarMask {
						var coord float64
						if dir.Axis() == "azimuth" {
							coord = snap.grid.Azimuth[i]
						} else {
							coord = snap.grid.Altitude[i]
						}
						if math.Abs(coord-angle) > halfBar {
							frame[i] = bgByte
							continue
						}
					}
					on := snap.base[i] != phaseFlip
					if on {
						frame[i] = toLuminanceByte(bg + contrast)
					} else {
						frame[i] = toLuminanceByte(bg - contrast)
					}
				}
			}
			done <- struct{}{}
		}(y0, y1)
	}
	for wk := 0; wk < workers; wk++ {
		<-done
	}
	return frame, w, h, nil
}

func toLuminanceByte(v float64) byte {
	v = clamp(v, 0, 1)
	return byte(math.Round(v * 255))
}
