package main

import "path/filepath"

// Services is the composition root: every long-lived collaborator is
// constructed once here and wired together via constructor injection,
// avoiding the global-singleton pattern the Design Notes call out
// (mirrors the teacher's composition-root shape in main.go, adapted
// from an emulator's CPU/video/audio graph to this system's
// parameter/stimulus/acquisition/analysis/control-plane graph).
type Services struct {
	Store        *ParameterStore
	Engine       *StimulusEngine
	Tracker      *SyncTracker
	Coordinator  *AcquisitionCoordinator
	Pipeline     *AnalysisPipeline
	ControlPlane *ControlPlane
	IPC          *IPCServer

	baseDir string
}

// NewServices builds the full dependency graph rooted at baseDir
// (holding the parameter file and finalized session directories).
func NewServices(baseDir string, surface PresentationSurface, detectCameras func() ([]string, error)) (*Services, error) {
	paramPath := filepath.Join(baseDir, "parameters.json")
	sessionsDir := filepath.Join(baseDir, "sessions")

	store := NewParameterStore(func(s ParameterSnapshot) error {
		return saveParameterFile(paramPath, s)
	})
	if loaded, err := loadParameterFile(paramPath); err == nil {
		store.current = loaded
	}

	engine := NewStimulusEngine()
	if err := engine.Configure(store.GetAll()); err != nil {
		return nil, err
	}

	tracker := NewSyncTracker()
	coord := NewAcquisitionCoordinator(engine, surface, tracker)
	pipeline := NewAnalysisPipeline()

	cp := NewControlPlane(store, engine, coord, pipeline, sessionsDir, detectCameras)
	cp.registerClipboardCommand(store)

	ipc, err := NewIPCServer(cp)
	if err != nil {
		return nil, err
	}

	store.Subscribe(groupMonitor, func(group string, snap ParameterSnapshot) {
		if err := engine.Configure(snap); err != nil {
			logError("stimulus engine reconfigure after monitor update failed: %v", err)
		}
	})
	store.Subscribe(groupStimulus, func(group string, snap ParameterSnapshot) {
		if err := engine.Configure(snap); err != nil {
			logError("stimulus engine reconfigure after stimulus update failed: %v", err)
		}
	})

	return &Services{
		Store: store, Engine: engine, Tracker: tracker,
		Coordinator: coord, Pipeline: pipeline, ControlPlane: cp, IPC: ipc,
		baseDir: baseDir,
	}, nil
}

// Start begins accepting control-plane connections.
func (s *Services) Start() {
	s.IPC.Start()
}

// Stop aborts any in-flight acquisition and tears down the IPC listener.
func (s *Services) Stop() {
	s.Coordinator.Stop()
	s.IPC.Stop()
}
