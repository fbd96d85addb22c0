package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// configFile is the on-disk envelope described in spec §6. `Config`
// carries schema/validation metadata for UI introspection only; it is
// not re-validated on load. `Default` always carries every group,
// including volatile ones, so a fresh install has sane monitor/camera
// fallbacks before hardware detection runs.
type configFile struct {
	Config  map[string]any    `json:"config"`
	Current map[string]any    `json:"current"`
	Default map[string]any    `json:"default"`
}

func schemaMetadata() map[string]any {
	return map[string]any{
		"groups":    []string{groupMonitor, groupCamera, groupStimulus, groupAcquisition, groupAnalysis},
		"volatile":  []string{groupMonitor, groupCamera},
		"invariant": "stimulus.background_luminance >= stimulus.contrast",
	}
}

// stripVolatile serializes every group of s except the volatile ones,
// per spec §4.1/§6: monitor and camera are never written to disk.
func stripVolatile(s ParameterSnapshot) map[string]any {
	return map[string]any{
		groupStimulus:    s.Stimulus,
		groupAcquisition: s.Acquisition,
		groupAnalysis:    s.Analysis,
	}
}

func fullGroups(s ParameterSnapshot) map[string]any {
	return map[string]any{
		groupMonitor:     s.Monitor,
		groupCamera:      s.Camera,
		groupStimulus:    s.Stimulus,
		groupAcquisition: s.Acquisition,
		groupAnalysis:    s.Analysis,
	}
}

// saveParameterFile persists s (minus volatile groups) to path using
// write-temp-then-rename for atomicity, matching the teacher's
// sanitize-then-os.WriteFile idiom (file_io.go) generalized to a
// rename-based commit so a crash mid-write never corrupts the file
// readers already have open.
func saveParameterFile(path string, s ParameterSnapshot) error {
	doc := configFile{
		Config:  schemaMetadata(),
		Current: stripVolatile(s),
		Default: fullGroups(defaultSnapshot()),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return newError(KindSessionIO, "saveParameterFile", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".param-*.tmp")
	if err != nil {
		return newError(KindSessionIO, "saveParameterFile", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return newError(KindSessionIO, "saveParameterFile", err)
	}
	if err := tmp.Close(); err != nil {
		return newError(KindSessionIO, "saveParameterFile", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return newError(KindSessionIO, "saveParameterFile", err)
	}
	return nil
}

// loadParameterFile reads the persisted {config, current, default}
// envelope and merges `current`'s persistent groups over in-process
// defaults. Monitor and camera are always taken fresh from
// defaultSnapshot() regardless of what the file contains, per spec
// §4.1: volatile groups are always reset from defaults at startup.
func loadParameterFile(path string) (ParameterSnapshot, error) {
	out := defaultSnapshot()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return out, newError(KindSessionIO, "loadParameterFile", err)
	}

	var doc configFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return out, newError(KindSessionIO, "loadParameterFile", fmt.Errorf("malformed parameter file: %w", err))
	}

	if raw, ok := doc.Current[groupStimulus]; ok {
		if err := remarshal(raw, &out.Stimulus); err != nil {
			return out, newError(KindSessionIO, "loadParameterFile", err)
		}
	}
	if raw, ok := doc.Current[groupAcquisition]; ok {
		if err := remarshal(raw, &out.Acquisition); err != nil {
			return out, newError(KindSessionIO, "loadParameterFile", err)
		}
	}
	if raw, ok := doc.Current[groupAnalysis]; ok {
		if err := remarshal(raw, &out.Analysis); err != nil {
			return out, newError(KindSessionIO, "loadParameterFile", err)
		}
	}
	return out, nil
}

func remarshal(src any, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
