package main

import (
	"fmt"
	"sync"
	"time"
)

// AcquisitionState enumerates the coordinator's state machine (spec §4.5).
type AcquisitionState int

const (
	StateIdle AcquisitionState = iota
	StatePreparing
	StateBaselinePre
	StateSweeping
	StateBetween
	StateBaselinePost
	StateFinalizing
	StateAborting
)

func (s AcquisitionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePreparing:
		return "PREPARING"
	case StateBaselinePre:
		return "BASELINE_PRE"
	case StateSweeping:
		return "SWEEPING"
	case StateBetween:
		return "BETWEEN"
	case StateBaselinePost:
		return "BASELINE_POST"
	case StateFinalizing:
		return "FINALIZING"
	case StateAborting:
		return "ABORTING"
	default:
		return "UNKNOWN"
	}
}

// AcquisitionStatus is a read-only snapshot for the status display /
// control plane, never used for control flow.
type AcquisitionStatus struct {
	State          AcquisitionState
	Direction      Direction
	Cycle          int
	MissedFrames   int
	DroppedCameraFrames int
}

// AcquisitionCoordinator drives the four-direction sweep state machine
// (spec §4.5), orchestrating StimulusEngine, SyncTracker and
// SessionRecorder across three concurrent logical domains: the
// render/present loop, the camera-ingest callback, and control-plane
// commands (spec §5).
type AcquisitionCoordinator struct {
	mu    sync.Mutex
	state AcquisitionState
	dir   Direction
	cycle int

	missed  int
	aborted bool

	stimulusEngine *StimulusEngine
	surface        PresentationSurface
	tracker        *SyncTracker
	recorder       *SessionRecorder
	frameSource    FrameSource

	unsubscribeFrames func()

	stopRequested    chan struct{}
	lastCameraAt     time.Time
	acquisitionStart time.Time
}

func NewAcquisitionCoordinator(engine *StimulusEngine, surface PresentationSurface, tracker *SyncTracker) *AcquisitionCoordinator {
	return &AcquisitionCoordinator{
		state:          StateIdle,
		stimulusEngine: engine,
		surface:        surface,
		tracker:        tracker,
	}
}

func (c *AcquisitionCoordinator) Status() AcquisitionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := AcquisitionStatus{State: c.state, Direction: c.dir, Cycle: c.cycle, MissedFrames: c.missed}
	if c.tracker != nil {
		st.DroppedCameraFrames = c.tracker.Stats().DroppedCameraFrames
	}
	return st
}

func (c *AcquisitionCoordinator) setState(s AcquisitionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *AcquisitionCoordinator) State() AcquisitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins the sweep sequence: PREPARING -> BASELINE_PRE -> for
// each direction, SWEEPING x cycles interleaved with BETWEEN -> after
// the last direction's last cycle, BASELINE_POST -> FINALIZING -> IDLE.
// Runs synchronously on the calling goroutine (the caller is expected
// to invoke it from its own dedicated render/present thread, per
// spec §5); ctx-like cancellation is via Stop().
func (c *AcquisitionCoordinator) Start(params ParameterSnapshot, recorder *SessionRecorder, source FrameSource) error {
	if c.State() != StateIdle {
		return newError(KindAcquisitionAborted, "Start", fmt.Errorf("coordinator not idle"))
	}
	if !c.stimulusEngine.Ready() {
		return newError(KindHardwareUnready, "Start", nil)
	}

	c.mu.Lock()
	c.recorder = recorder
	c.frameSource = source
	c.stopRequested = make(chan struct{})
	c.aborted = false
	c.missed = 0
	c.mu.Unlock()

	c.setState(StatePreparing)

	c.tracker = NewSyncTracker()
	// acquisitionStart is the shared zero-point for both the camera's
	// hw_timestamp clock (frame sources stamp relative to Subscribe)
	// and the stimulus presentation timestamps recorded below, so
	// Merge/offline resampling can compare them directly (spec §4.4).
	c.acquisitionStart = time.Now()
	c.unsubscribeFrames = source.Subscribe(c.onCameraFrame)

	if err := c.surface.Start(); err != nil {
		c.fail(err)
		return err
	}

	c.setState(StateBaselinePre)
	if err := c.waitOrAbort(params.Acquisition.BaselineSec); err != nil {
		return err
	}

	for _, dir := range params.Acquisition.Directions {
		for cycle := 1; cycle <= params.Acquisition.Cycles; cycle++ {
			if c.isAborting() {
				return c.finishAborted()
			}
			if err := c.runSweep(dir, cycle, params); err != nil {
				return err
			}
			isLastOfDirection := cycle == params.Acquisition.Cycles
			isLastDirection := dir == params.Acquisition.Directions[len(params.Acquisition.Directions)-1]
			if isLastOfDirection && isLastDirection {
				break
			}
			c.setState(StateBetween)
			if err := c.waitOrAbort(params.Acquisition.BetweenSec); err != nil {
				return err
			}
		}
	}

	c.setState(StateBaselinePost)
	if err := c.waitOrAbort(params.Acquisition.BaselineSec); err != nil {
		return err
	}

	return c.finalize(false)
}

func (c *AcquisitionCoordinator) isAborting() bool {
	select {
	case <-c.stopRequested:
		return true
	default:
		return false
	}
}

func (c *AcquisitionCoordinator) waitOrAbort(seconds float64) error {
	timer := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-c.stopRequested:
		return c.finishAborted()
	}
}

func (c *AcquisitionCoordinator) runSweep(dir Direction, cycle int, params ParameterSnapshot) error {
	c.mu.Lock()
	c.dir = dir
	c.cycle = cycle
	c.mu.Unlock()
	c.setState(StateSweeping)

	c.tracker.BeginDirection(dir, cycle)
	if c.recorder != nil {
		if err := c.recorder.BeginDirection(dir, params.Camera.WidthPx, params.Camera.HeightPx); err != nil {
			c.fail(err)
			return err
		}
	}

	n, err := c.stimulusEngine.FramesPerSweep(dir)
	if err != nil {
		c.fail(err)
		return err
	}

	frameInterval := time.Duration(float64(time.Second) / params.Monitor.FPS)
	deadline := time.Now()
	for i := 0; i < n; i++ {
		if c.isAborting() {
			return c.finishAborted()
		}
		frame, w, h, err := c.stimulusEngine.Render(dir, i, n, true)
		if err != nil {
			c.fail(err)
			return err
		}
		if err := c.surface.Present(frame, w, h); err != nil {
			c.fail(err)
			return err
		}
		c.surface.VSync()

		angle, _ := c.stimulusEngine.AngleAt(dir, i, n)
		ts := time.Since(c.acquisitionStart).Microseconds()
		c.tracker.RecordStimulus(i, angle, ts, "vsync")
		if c.recorder != nil {
			c.recorder.WriteAngle(angle)
			c.recorder.WriteStimulusTimestamp(ts)
		}

		// Tie-break policy: if we've fallen behind the presentation
		// deadline, skip ahead to the frame the next VSYNC corresponds
		// to instead of accumulating lag (spec §4.5).
		deadline = deadline.Add(frameInterval)
		if behind := time.Until(deadline); behind < 0 {
			skip := int(-behind/frameInterval) + 1
			if skip > 1 {
				logWarn("missed deadline for %s frame %d, skipping %d frames", dir, i, skip-1)
				c.mu.Lock()
				c.missed++
				c.mu.Unlock()
				i += skip - 1
				deadline = time.Now()
			}
		}
	}
	return nil
}

func (c *AcquisitionCoordinator) onCameraFrame(f CameraFrame) {
	c.mu.Lock()
	lastAt := c.lastCameraAt
	c.lastCameraAt = time.Now()
	c.mu.Unlock()

	if !lastAt.IsZero() && time.Since(lastAt) > time.Second {
		logError("camera frame gap exceeded 1s, aborting acquisition")
		c.Stop()
		return
	}

	if c.tracker != nil {
		c.tracker.RecordCamera(f.Index, f.HWTimestampUs)
	}
	if c.recorder != nil {
		if !c.recorder.WriteFrame(f.Data) {
			logWarn("dropped camera frame %d: session writer backpressure", f.Index)
		}
		c.recorder.WriteTimestamp(f.HWTimestampUs)
	}
}

// Stop transitions the coordinator to ABORTING; the in-flight render
// is allowed to complete, camera ingest drains, and the recorder is
// finalized with a partial flag (spec §5 Cancellation).
func (c *AcquisitionCoordinator) Stop() {
	c.mu.Lock()
	if c.stopRequested == nil {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.stopRequested:
		// already closed
	default:
		close(c.stopRequested)
	}
	c.mu.Unlock()
}

func (c *AcquisitionCoordinator) fail(err error) {
	logError("acquisition fatal error: %v", err)
	c.finishAborted()
}

func (c *AcquisitionCoordinator) finishAborted() error {
	c.setState(StateAborting)
	return c.finalize(true)
}

func (c *AcquisitionCoordinator) finalize(aborted bool) error {
	c.setState(StateFinalizing)
	if c.unsubscribeFrames != nil {
		c.unsubscribeFrames()
	}
	if err := c.surface.Stop(); err != nil {
		logError("surface stop failed: %v", err)
	}

	if c.recorder != nil {
		if aborted {
			c.recorder.MarkPartial()
		}
		if err := c.recorder.Close(); err != nil {
			logError("session close failed: %v", err)
		}
	}
	c.setState(StateIdle)
	if aborted {
		return newError(KindAcquisitionAborted, "finalize", nil)
	}
	return nil
}
