package main

import "testing"

// S6 — Sync merge scenario from spec §8.
func TestMerge_S6(t *testing.T) {
	tr := NewSyncTracker()
	tr.BeginDirection(DirLR, 1)

	framePeriodUs := int64(1e6 / 60.0) // 16.67ms at 60fps
	for i := 0; i < 5; i++ {
		tr.RecordStimulus(i, float64(i), int64(i)*framePeriodUs, "vsync")
	}
	tr.RecordCamera(0, 5000)
	tr.RecordCamera(1, 38000)
	tr.RecordCamera(2, 72000)

	records := tr.Merge()
	if len(records) != 3 {
		t.Fatalf("expected 3 merged records, got %d", len(records))
	}
	wantStimIdx := []int{0, 2, 4}
	for i, r := range records {
		if r.StimulusFrameIndex != wantStimIdx[i] {
			t.Errorf("record %d: stimulus index = %d, want %d", i, r.StimulusFrameIndex, wantStimIdx[i])
		}
		if r.CameraFrameIndex != i {
			t.Errorf("record %d: camera index = %d, want %d", i, r.CameraFrameIndex, i)
		}
	}
}

// Property 7 — strictly increasing camera_frame_index, non-decreasing stimulus_frame_index.
func TestMerge_OrderingInvariant(t *testing.T) {
	tr := NewSyncTracker()
	tr.BeginDirection(DirTB, 2)
	for i := 0; i < 20; i++ {
		tr.RecordStimulus(i, float64(i)*0.5, int64(i)*16670, "vsync")
	}
	for i := 0; i < 10; i++ {
		tr.RecordCamera(i, int64(i)*20000)
	}
	records := tr.Merge()
	for i := 1; i < len(records); i++ {
		if records[i].CameraFrameIndex <= records[i-1].CameraFrameIndex {
			t.Errorf("camera frame index not strictly increasing at %d", i)
		}
		if records[i].StimulusFrameIndex < records[i-1].StimulusFrameIndex {
			t.Errorf("stimulus frame index decreased at %d", i)
		}
	}
}

func TestMerge_DropsCameraFramesPrecedingFirstStimulus(t *testing.T) {
	tr := NewSyncTracker()
	tr.BeginDirection(DirLR, 1)
	tr.RecordStimulus(0, 0, 0, "vsync")
	tr.RecordCamera(0, -20000) // shouldn't happen in practice, but exercise the guard
	records := tr.Merge()
	if len(records) != 0 {
		t.Errorf("expected frame preceding first stimulus to be dropped, got %d records", len(records))
	}
	if tr.Stats().DroppedCameraFrames != 1 {
		t.Errorf("expected drop counter to increment")
	}
}

// Reproduces the missed-VSYNC-deadline skip-ahead policy (spec §4.5):
// FrameIndex jumps from 0 straight to 3, so Merge must pair by
// recorded timestamp rather than by assumed constant-cadence position.
func TestMerge_HandlesNonContiguousFrameIndicesFromSkipAhead(t *testing.T) {
	tr := NewSyncTracker()
	tr.BeginDirection(DirLR, 1)
	tr.RecordStimulus(0, 0, 0, "vsync")
	tr.RecordStimulus(3, 3, 50000, "vsync") // skipped indices 1,2 on a missed deadline
	tr.RecordStimulus(4, 4, 66670, "vsync")

	tr.RecordCamera(0, 10000) // between stimulus 0 and 3 -> pairs with 0
	tr.RecordCamera(1, 60000) // between stimulus 3 and 4 -> pairs with 3

	records := tr.Merge()
	if len(records) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(records))
	}
	if records[0].StimulusFrameIndex != 0 {
		t.Errorf("record 0: stimulus index = %d, want 0", records[0].StimulusFrameIndex)
	}
	if records[1].StimulusFrameIndex != 3 {
		t.Errorf("record 1: stimulus index = %d, want 3 (not mis-indexed by position)", records[1].StimulusFrameIndex)
	}
}
