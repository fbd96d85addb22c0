package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestControlPlane(t *testing.T) (*ControlPlane, *ParameterStore) {
	t.Helper()
	store := NewParameterStore(nil)
	engine := NewStimulusEngine()
	if err := engine.Configure(store.GetAll()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	coord := NewAcquisitionCoordinator(engine, &fakeSurface{}, NewSyncTracker())
	pipeline := NewAnalysisPipeline()
	cp := NewControlPlane(store, engine, coord, pipeline, t.TempDir(), nil)
	return cp, store
}

func TestControlPlane_Ping(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := cp.Dispatch(CommandRequest{Cmd: "ping"})
	if resp.Status != "ok" {
		t.Fatalf("expected ok status, got %+v", resp)
	}
}

func TestControlPlane_UnknownCommand(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := cp.Dispatch(CommandRequest{Cmd: "does_not_exist"})
	if resp.Status != "error" || resp.Kind != KindControlPlaneBad.String() {
		t.Fatalf("expected ControlPlaneBad error, got %+v", resp)
	}
}

func TestControlPlane_GetParameterGroup(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	params, _ := json.Marshal(map[string]string{"group": groupStimulus})
	resp := cp.Dispatch(CommandRequest{Cmd: "get_parameter_group", Params: params})
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
}

func TestControlPlane_UpdateParameterGroup_RejectsInvalid(t *testing.T) {
	cp, store := newTestControlPlane(t)
	_ = store.UpdateGroup(groupStimulus, func(c any) any {
		p := c.(StimulusParams)
		p.BackgroundLuminance = 0.5
		p.Contrast = 0.3
		return p
	})

	params, _ := json.Marshal(map[string]any{
		"group":   groupStimulus,
		"updates": map[string]any{"background_luminance": 0.2},
	})
	resp := cp.Dispatch(CommandRequest{Cmd: "update_parameter_group", Params: params})
	if resp.Status != "error" || resp.Kind != KindParameterValidation.String() {
		t.Fatalf("expected ParameterValidation error, got %+v", resp)
	}

	group, err := store.GetGroup(groupStimulus)
	if err != nil {
		t.Fatal(err)
	}
	if group.(StimulusParams).BackgroundLuminance != 0.5 {
		t.Error("rejected update must leave the store unchanged")
	}
}

func TestControlPlane_UpdateParameterGroup_RejectsWhileAcquiring(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	// Reach into the coordinator via another dispatch is awkward in a
	// black-box test; instead exercise the guard directly through a
	// coordinator forced into a non-idle state.
	store := NewParameterStore(nil)
	engine := NewStimulusEngine()
	engine.Configure(store.GetAll())
	coord := NewAcquisitionCoordinator(engine, &fakeSurface{}, NewSyncTracker())
	coord.setState(StateSweeping)
	cp = NewControlPlane(store, engine, coord, NewAnalysisPipeline(), "", nil)

	params, _ := json.Marshal(map[string]any{
		"group":   groupStimulus,
		"updates": map[string]any{"contrast": 0.1},
	})
	resp := cp.Dispatch(CommandRequest{Cmd: "update_parameter_group", Params: params})
	if resp.Status != "error" || resp.Kind != KindAcquisitionAborted.String() {
		t.Fatalf("expected AcquisitionAborted guard error, got %+v", resp)
	}
}

func TestControlPlane_ListSessionsEmptyDir(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := cp.Dispatch(CommandRequest{Cmd: "list_sessions"})
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
}

func TestControlPlane_DetectCamerasWithoutProbe(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := cp.Dispatch(CommandRequest{Cmd: "detect_cameras"})
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
}

func TestControlPlane_GetAnalysisStatus_UnknownSessionIsIdle(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	params, _ := json.Marshal(map[string]string{"session_id": "never-started"})
	resp := cp.Dispatch(CommandRequest{Cmd: "get_analysis_status", Params: params})
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
	data := resp.Data.(map[string]string)
	if data["status"] != "idle" {
		t.Fatalf("expected idle status for an unknown session, got %+v", data)
	}
}

func TestControlPlane_StartAnalysis_RunsPipelineAgainstRecordedSession(t *testing.T) {
	store := NewParameterStore(nil)
	engine := NewStimulusEngine()
	if err := engine.Configure(store.GetAll()); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	coord := NewAcquisitionCoordinator(engine, &fakeSurface{}, NewSyncTracker())
	pipeline := NewAnalysisPipeline()
	sessionsDir := t.TempDir()
	cp := NewControlPlane(store, engine, coord, pipeline, sessionsDir, nil)

	snap := store.GetAll()
	snap.Acquisition.Directions = []Direction{DirLR, DirRL}
	snap.Acquisition.Cycles = 1
	const w, h = 4, 4
	rec, err := NewSessionRecorder(sessionsDir, "analyze-me", snap, 256)
	if err != nil {
		t.Fatalf("NewSessionRecorder: %v", err)
	}
	frame := make([]byte, w*h)
	for _, dir := range snap.Acquisition.Directions {
		if err := rec.BeginDirection(dir, w, h); err != nil {
			t.Fatalf("BeginDirection: %v", err)
		}
		for i := 0; i < 8; i++ {
			rec.WriteFrame(frame)
			rec.WriteTimestamp(int64(i) * 1000)
			rec.WriteAngle(float64(i))
			rec.WriteStimulusTimestamp(int64(i) * 1000)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	startParams, _ := json.Marshal(map[string]string{"session_id": "analyze-me"})
	startResp := cp.Dispatch(CommandRequest{Cmd: "start_analysis", Params: startParams})
	if startResp.Status != "ok" {
		t.Fatalf("start_analysis failed: %+v", startResp)
	}

	statusParams, _ := json.Marshal(map[string]string{"session_id": "analyze-me"})
	deadline := time.Now().Add(5 * time.Second)
	var last CommandResponse
	for time.Now().Before(deadline) {
		last = cp.Dispatch(CommandRequest{Cmd: "get_analysis_status", Params: statusParams})
		data := last.Data.(map[string]any)
		if data["status"] == "done" || data["status"] == "error" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	data := last.Data.(map[string]any)
	if data["status"] != "done" {
		t.Fatalf("expected analysis to finish with status=done, got %+v", data)
	}
	if _, err := os.Stat(filepath.Join(sessionsDir, "analyze-me", "analysis", "azimuth.png")); err != nil {
		t.Fatalf("expected rendered azimuth.png: %v", err)
	}
}
