package main

import "time"

// PresentationSurface is the external display abstraction from spec
// §1 ("Display hardware... abstracted as a presentation surface with
// VSYNC callback"). Implementations live in the build-tag-selected
// stimulus_backend_*.go files.
type PresentationSurface interface {
	Start() error
	Stop() error
	Present(frame []byte, width, height int) error
	// VSync blocks until the next presentation has completed and
	// returns the monotonic frame counter at that point.
	VSync() uint64
}

// CameraFrame is one frame yielded by a FrameSource, paired with the
// hardware timestamp it was captured at (spec §2).
type CameraFrame struct {
	Index           int
	Data            []byte
	Width, Height   int
	HWTimestampUs   int64
}

// FrameSource is the external camera-hardware collaborator (spec §1):
// "Camera hardware drivers (abstracted as a frame source yielding
// (frame, hardware_timestamp))". Subscribe registers a callback that
// fires once per captured frame until the returned cancel func is
// called.
type FrameSource interface {
	Subscribe(fn func(CameraFrame)) (cancel func())
}

// syntheticFrameSource is a deterministic, clock-driven FrameSource
// used by tests and by headless acquisition runs without real camera
// hardware attached.
type syntheticFrameSource struct {
	width, height int
	intervalUs    int64
}

// NewSyntheticFrameSource builds a FrameSource that emits width x
// height zero frames at fps frames per second of wall-clock time; the
// first frame arrives one interval after Subscribe is called.
func NewSyntheticFrameSource(width, height int, fps float64) FrameSource {
	interval := int64(1e6 / fps)
	return &syntheticFrameSource{width: width, height: height, intervalUs: interval}
}

func (s *syntheticFrameSource) Subscribe(fn func(CameraFrame)) func() {
	stop := make(chan struct{})
	go func() {
		idx := 0
		ticker := time.NewTicker(time.Duration(s.intervalUs) * time.Microsecond)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ts := time.Since(start).Microseconds()
				fn(CameraFrame{
					Index:         idx,
					Data:          make([]byte, s.width*s.height),
					Width:         s.width,
					Height:        s.height,
					HWTimestampUs: ts,
				})
				idx++
			}
		}
	}()
	return func() { close(stop) }
}
