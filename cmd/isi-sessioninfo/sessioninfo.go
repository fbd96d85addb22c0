package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// planeInfo mirrors the fixed-size header isi-core writes before every
// frame/angle/timestamp plane file (see session_recorder.go's
// planeHeader): width, height, a dtype tag, padding, and a sample
// count patched in at Close time.
type planeInfo struct {
	Width, Height int32
	DType         uint8
	_             [3]byte
	Count         int64
}

const planeHeaderSize = 4 + 4 + 1 + 3 + 8

var dtypeNames = map[uint8]string{0: "uint8", 1: "uint16", 2: "float64", 3: "int64"}

func readPlaneHeader(path string) (planeInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return planeInfo{}, err
	}
	defer f.Close()
	var h planeInfo
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return planeInfo{}, fmt.Errorf("%s: malformed plane header: %w", filepath.Base(path), err)
	}
	return h, nil
}

type sessionReport struct {
	SessionID  string         `json:"session_id"`
	Partial    bool           `json:"partial"`
	Directions []string       `json:"directions"`
	Planes     []planeSummary `json:"planes"`
}

type planeSummary struct {
	File   string `json:"file"`
	Width  int32  `json:"width"`
	Height int32  `json:"height"`
	DType  string `json:"dtype"`
	Count  int64  `json:"count"`
}

// inspectSession reads metadata.json and every *.bin/*.npy plane file
// directly under dir (a finalized, non-staging session directory) and
// builds a human- and machine-readable summary.
func inspectSession(dir string) (*sessionReport, error) {
	metaPath := filepath.Join(dir, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("reading metadata.json: %w", err)
	}

	var meta struct {
		SessionID  string   `json:"session_id"`
		Partial    bool     `json:"partial"`
		Directions []string `json:"directions"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing metadata.json: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	report := &sessionReport{SessionID: meta.SessionID, Partial: meta.Partial, Directions: meta.Directions}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".bin") && !strings.HasSuffix(name, ".npy") {
			continue
		}
		h, err := readPlaneHeader(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		report.Planes = append(report.Planes, planeSummary{
			File: name, Width: h.Width, Height: h.Height,
			DType: dtypeNames[h.DType], Count: h.Count,
		})
	}
	sort.Slice(report.Planes, func(i, j int) bool { return report.Planes[i].File < report.Planes[j].File })
	return report, nil
}

func (r *sessionReport) printHuman() {
	fmt.Printf("session:    %s\n", r.SessionID)
	fmt.Printf("partial:    %v\n", r.Partial)
	fmt.Printf("directions: %s\n", strings.Join(r.Directions, ", "))
	fmt.Println("planes:")
	for _, p := range r.Planes {
		fmt.Printf("  %-24s %dx%d %-8s count=%d\n", p.File, p.Width, p.Height, p.DType, p.Count)
	}
}
