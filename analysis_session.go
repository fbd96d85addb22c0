package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// readSessionPlaneHeader reads the fixed planeHeader prefix off f.
func readSessionPlaneHeader(f *os.File) (planeHeader, error) {
	var h planeHeader
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return planeHeader{}, err
	}
	return h, nil
}

// readFramesPlane reads a direction's `<DIR>_frames.bin`, decoding each
// uint8 grayscale frame into a normalized [0,1] float64 pixel vector.
func readFramesPlane(path string) (frames [][]float64, width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	h, err := readSessionPlaneHeader(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	width, height = int(h.Width), int(h.Height)
	npix := width * height
	frames = make([][]float64, 0, h.Count)
	buf := make([]byte, npix)
	for i := int64(0); i < h.Count; i++ {
		if _, err := readFull(f, buf); err != nil {
			return nil, 0, 0, fmt.Errorf("%s: frame %d: %w", filepath.Base(path), i, err)
		}
		row := make([]float64, npix)
		for j, b := range buf {
			row[j] = float64(b) / 255.0
		}
		frames = append(frames, row)
	}
	return frames, width, height, nil
}

// readInt64Plane reads a `*_timestamps.npy`/`*_stim_timestamps.npy` file.
func readInt64Plane(path string) ([]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := readSessionPlaneHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	out := make([]int64, h.Count)
	if err := binary.Read(f, binary.LittleEndian, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// resampleOntoStimulusTimeline keeps each recorded camera frame for
// which a stimulus presentation timestamp <= its hw timestamp exists
// (the same rule SyncTracker.Merge applies live during acquisition),
// dropping camera frames that precede the direction's first stimulus
// presentation. Every later frame is kept, in capture order; frames
// are not paired, interpolated or trimmed at the end of the sweep.
func resampleOntoStimulusTimeline(frames [][]float64, cameraTimestamps []int64, stimTimestamps []int64) ([][]float64, error) {
	if len(frames) != len(cameraTimestamps) {
		return nil, newError(KindAnalysisFailure, "resampleOntoStimulusTimeline", fmt.Errorf("frame/timestamp count mismatch: %d vs %d", len(frames), len(cameraTimestamps)))
	}
	if len(stimTimestamps) == 0 {
		return nil, newError(KindAnalysisFailure, "resampleOntoStimulusTimeline", fmt.Errorf("no stimulus timestamps recorded"))
	}

	synthetic := make([]StimulusRecord, len(stimTimestamps))
	for i, ts := range stimTimestamps {
		synthetic[i] = StimulusRecord{FrameIndex: i, TimestampUs: ts}
	}

	out := make([][]float64, 0, len(frames))
	for i, ts := range cameraTimestamps {
		if mostRecentStimulusIndex(synthetic, ts) < 0 {
			continue
		}
		out = append(out, frames[i])
	}
	if len(out) == 0 {
		return nil, newError(KindAnalysisFailure, "resampleOntoStimulusTimeline", fmt.Errorf("no camera frames fell within the stimulus presentation window"))
	}
	return out, nil
}

// loadSessionMetadata reads metadata.json from a finalized (or
// partial) session directory.
func loadSessionMetadata(sessionDir string) (sessionMetadata, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, "metadata.json"))
	if err != nil {
		return sessionMetadata{}, newError(KindSessionIO, "loadSessionMetadata", err)
	}
	var meta sessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return sessionMetadata{}, newError(KindSessionIO, "loadSessionMetadata", err)
	}
	return meta, nil
}

// runSessionAnalysis loads every recorded direction of a finalized
// session, resamples each onto the stimulus timeline, and runs the
// full analysis pipeline over the result (spec §2's offline
// SessionRecorder -> AnalysisPipeline -> AnalysisRenderer data flow).
func runSessionAnalysis(pipeline *AnalysisPipeline, sessionDir string) (*AnalysisResult, ParameterSnapshot, error) {
	meta, err := loadSessionMetadata(sessionDir)
	if err != nil {
		return nil, ParameterSnapshot{}, err
	}
	if len(meta.Directions) == 0 {
		return nil, meta.Parameters, newError(KindAnalysisFailure, "runSessionAnalysis", fmt.Errorf("session recorded no directions"))
	}

	framesByDirection := make(map[Direction][][]float64, len(meta.Directions))
	var width, height int
	for _, dir := range meta.Directions {
		prefix := filepath.Join(sessionDir, strings.ToUpper(string(dir)))
		frames, w, h, err := readFramesPlane(prefix + "_frames.bin")
		if err != nil {
			return nil, meta.Parameters, newError(KindAnalysisFailure, "runSessionAnalysis", err)
		}
		cameraTs, err := readInt64Plane(prefix + "_timestamps.npy")
		if err != nil {
			return nil, meta.Parameters, newError(KindAnalysisFailure, "runSessionAnalysis", err)
		}
		stimTs, err := readInt64Plane(prefix + "_stim_timestamps.npy")
		if err != nil {
			return nil, meta.Parameters, newError(KindAnalysisFailure, "runSessionAnalysis", err)
		}
		resampled, err := resampleOntoStimulusTimeline(frames, cameraTs, stimTs)
		if err != nil {
			return nil, meta.Parameters, err
		}
		framesByDirection[dir] = resampled
		width, height = w, h
	}

	result, err := pipeline.Run(meta.Parameters, framesByDirection, width, height)
	return result, meta.Parameters, err
}

// renderAndWriteResult renders the azimuth/altitude degree maps
// (converted to radians for the cyclic colormap), the VFS map and the
// segmented area map to PNGs under sessionDir/analysis (spec §2's
// AnalysisRenderer stage of the offline data flow).
func renderAndWriteResult(sessionDir string, result *AnalysisResult) error {
	outDir := filepath.Join(sessionDir, "analysis")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return newError(KindSessionIO, "renderAndWriteResult", err)
	}
	toRadians := func(deg []float64) []float64 {
		out := make([]float64, len(deg))
		for i, d := range deg {
			out[i] = d * math.Pi / 180
		}
		return out
	}

	if result.Azimuth != nil {
		img := renderPhaseCyclic(toRadians(result.Azimuth.DegreeMap), result.Azimuth.Width, result.Azimuth.Height)
		if err := writePNGFile(filepath.Join(outDir, "azimuth.png"), img); err != nil {
			return err
		}
	}
	if result.Altitude != nil {
		img := renderPhaseCyclic(toRadians(result.Altitude.DegreeMap), result.Altitude.Width, result.Altitude.Height)
		if err := writePNGFile(filepath.Join(outDir, "altitude.png"), img); err != nil {
			return err
		}
	}
	if result.VFS != nil {
		img, err := renderVFSMap(result.VFS)
		if err != nil {
			return err
		}
		if err := writePNGFile(filepath.Join(outDir, "vfs.png"), img); err != nil {
			return err
		}
		areaImg := renderAreaMap(result.Areas, result.AreaLabels, result.VFS.Width, result.VFS.Height)
		if err := writePNGFile(filepath.Join(outDir, "areas.png"), areaImg); err != nil {
			return err
		}
	}
	return nil
}

func writePNGFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return newError(KindSessionIO, "writePNGFile", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return newError(KindSessionIO, "writePNGFile", err)
	}
	return nil
}

// analysisJobStatus tracks one start_analysis invocation's progress
// for get_analysis_status to report (spec §4.8).
type analysisJobStatus struct {
	Status  string `json:"status"` // queued, running, done, error
	Error   string `json:"error,omitempty"`
	Summary any    `json:"summary,omitempty"`
}

type analysisResultSummary struct {
	HasAzimuth            bool    `json:"has_azimuth"`
	HasAltitude           bool    `json:"has_altitude"`
	AreaCount             int     `json:"area_count"`
	ReliablePixelFraction float64 `json:"reliable_pixel_fraction"`
}

func summarizeAnalysisResult(r *AnalysisResult) analysisResultSummary {
	return analysisResultSummary{
		HasAzimuth:            r.Azimuth != nil,
		HasAltitude:           r.Altitude != nil,
		AreaCount:             len(r.Areas),
		ReliablePixelFraction: r.ReliablePixelFraction,
	}
}
