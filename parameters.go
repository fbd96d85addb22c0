package main

// Parameter groups per spec §3. Each group is a plain struct; callers
// change fields through the mutate function passed to
// ParameterStore.UpdateGroup, which validates and replaces the whole
// group.

// MonitorParams is volatile: (re)detected from hardware at startup,
// never persisted.
type MonitorParams struct {
	WidthPx         int     `json:"width_px"`
	HeightPx        int     `json:"height_px"`
	WidthCm         float64 `json:"width_cm"`
	HeightCm        float64 `json:"height_cm"`
	DistanceCm      float64 `json:"distance_cm"`
	LateralAngleDeg float64 `json:"lateral_angle_deg"`
	TiltAngleDeg    float64 `json:"tilt_angle_deg"`
	FPS             float64 `json:"fps"`
}

// CameraParams is volatile.
type CameraParams struct {
	WidthPx    int     `json:"width_px"`
	HeightPx   int     `json:"height_px"`
	FPS        float64 `json:"fps"`
	ExposureUs float64 `json:"exposure_us"`
	Gain       float64 `json:"gain"`
}

// StimulusParams is persistent (scientific).
type StimulusParams struct {
	BarWidthDeg         float64 `json:"bar_width_deg"`
	CheckerSizeDeg      float64 `json:"checker_size_deg"`
	DriftSpeedDegPerSec float64 `json:"drift_speed_deg_per_sec"`
	Contrast            float64 `json:"contrast"`
	BackgroundLuminance float64 `json:"background_luminance"`
	StrobeRateHz        float64 `json:"strobe_rate_hz"`
}

// AcquisitionParams is persistent.
type AcquisitionParams struct {
	Directions []Direction `json:"directions"`
	Cycles     int         `json:"cycles"`
	BaselineSec float64    `json:"baseline_sec"`
	BetweenSec  float64    `json:"between_sec"`
}

// AnalysisParams is persistent.
type AnalysisParams struct {
	MagnitudeThreshold float64 `json:"magnitude_threshold"`
	SmoothingSigma     float64 `json:"smoothing_sigma"`
	PhaseFilterSigma   float64 `json:"phase_filter_sigma"`
	GradientWindowSize int     `json:"gradient_window_size"`
	VFSThreshold       float64 `json:"vfs_threshold"`
}

// ParameterSnapshot is the full set of current groups, as handed to
// subscribers and to StimulusEngine.configure.
type ParameterSnapshot struct {
	Monitor     MonitorParams     `json:"monitor"`
	Camera      CameraParams      `json:"camera"`
	Stimulus    StimulusParams    `json:"stimulus"`
	Acquisition AcquisitionParams `json:"acquisition"`
	Analysis    AnalysisParams    `json:"analysis"`
}

const (
	groupMonitor     = "monitor"
	groupCamera      = "camera"
	groupStimulus    = "stimulus"
	groupAcquisition = "acquisition"
	groupAnalysis    = "analysis"
)

var volatileGroups = map[string]bool{
	groupMonitor: true,
	groupCamera:  true,
}

func defaultSnapshot() ParameterSnapshot {
	return ParameterSnapshot{
		Monitor: MonitorParams{
			WidthPx: 1920, HeightPx: 1080,
			WidthCm: 68.0, HeightCm: 38.0,
			DistanceCm: 10.0,
			FPS:        60,
		},
		Camera: CameraParams{
			WidthPx: 512, HeightPx: 512, FPS: 30,
			ExposureUs: 20000, Gain: 1.0,
		},
		Stimulus: StimulusParams{
			BarWidthDeg:         20.0,
			CheckerSizeDeg:      25.0,
			DriftSpeedDegPerSec: 9.0,
			Contrast:            0.8,
			BackgroundLuminance: 0.8,
			StrobeRateHz:        6.0,
		},
		Acquisition: AcquisitionParams{
			Directions:  []Direction{DirLR, DirRL, DirTB, DirBT},
			Cycles:      10,
			BaselineSec: 5.0,
			BetweenSec:  5.0,
		},
		Analysis: AnalysisParams{
			MagnitudeThreshold: 0.01,
			SmoothingSigma:     2.0,
			PhaseFilterSigma:   1.0,
			GradientWindowSize: 3,
			VFSThreshold:       0.95,
		},
	}
}

// validateStimulus enforces §3's invariant: background_luminance must
// never be below contrast, else half the checkerboard clamps to black.
func validateStimulus(p StimulusParams) []string {
	var bad []string
	if p.BackgroundLuminance < p.Contrast {
		bad = append(bad, "background_luminance", "contrast")
	}
	if p.Contrast < 0 || p.Contrast > 1 {
		bad = append(bad, "contrast")
	}
	if p.BackgroundLuminance < 0 || p.BackgroundLuminance > 1 {
		bad = append(bad, "background_luminance")
	}
	if p.BarWidthDeg <= 0 {
		bad = append(bad, "bar_width_deg")
	}
	if p.CheckerSizeDeg <= 0 {
		bad = append(bad, "checker_size_deg")
	}
	if p.DriftSpeedDegPerSec <= 0 {
		bad = append(bad, "drift_speed_deg_per_sec")
	}
	return dedupe(bad)
}

func validateMonitor(p MonitorParams) []string {
	var bad []string
	if p.WidthPx <= 0 {
		bad = append(bad, "width_px")
	}
	if p.HeightPx <= 0 {
		bad = append(bad, "height_px")
	}
	if p.FPS <= 0 {
		bad = append(bad, "fps")
	}
	if p.WidthCm <= 0 {
		bad = append(bad, "width_cm")
	}
	if p.HeightCm <= 0 {
		bad = append(bad, "height_cm")
	}
	if p.DistanceCm <= 0 {
		bad = append(bad, "distance_cm")
	}
	return dedupe(bad)
}

func validateCamera(p CameraParams) []string {
	var bad []string
	if p.WidthPx <= 0 {
		bad = append(bad, "width_px")
	}
	if p.HeightPx <= 0 {
		bad = append(bad, "height_px")
	}
	if p.FPS <= 0 {
		bad = append(bad, "fps")
	}
	return dedupe(bad)
}

func validateAcquisition(p AcquisitionParams) []string {
	var bad []string
	if p.Cycles < 1 {
		bad = append(bad, "cycles")
	}
	if p.BaselineSec < 0 {
		bad = append(bad, "baseline_sec")
	}
	if p.BetweenSec < 0 {
		bad = append(bad, "between_sec")
	}
	if len(p.Directions) == 0 {
		bad = append(bad, "directions")
	}
	for _, d := range p.Directions {
		if !d.Valid() {
			bad = append(bad, "directions")
			break
		}
	}
	return dedupe(bad)
}

func validateAnalysis(p AnalysisParams) []string {
	var bad []string
	if p.MagnitudeThreshold < 0 {
		bad = append(bad, "magnitude_threshold")
	}
	if p.SmoothingSigma < 0 {
		bad = append(bad, "smoothing_sigma")
	}
	if p.PhaseFilterSigma < 0 {
		bad = append(bad, "phase_filter_sigma")
	}
	if p.GradientWindowSize < 2 {
		bad = append(bad, "gradient_window_size")
	}
	if p.VFSThreshold <= 0 || p.VFSThreshold >= 1 {
		bad = append(bad, "vfs_threshold")
	}
	return dedupe(bad)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
