package main

import (
	"encoding/json"
	"sync"

	"golang.design/x/clipboard"
)

var (
	clipboardOnce sync.Once
	clipboardOK   bool
)

func clipboardReady() bool {
	clipboardOnce.Do(func() {
		clipboardOK = clipboard.Init() == nil
	})
	return clipboardOK
}

// registerClipboardCommand adds "copy_parameters_to_clipboard": it
// serializes the persistent parameter groups (the same map the on-disk
// config envelope stores under `current`, without the `config` and
// `default` sections) and writes it as text, for pasting into a
// lab notebook alongside a session recording. Mirrors the teacher's
// clipboard.Init/Read pattern (video_backend_ebiten.go) in the
// opposite direction (Write).
func (cp *ControlPlane) registerClipboardCommand(store *ParameterStore) {
	cp.handlers["copy_parameters_to_clipboard"] = func(json.RawMessage) (any, error) {
		if !clipboardReady() {
			return nil, newError(KindHardwareUnready, "copy_parameters_to_clipboard", nil)
		}
		snap := store.GetAll()
		data, err := json.MarshalIndent(stripVolatile(snap), "", "  ")
		if err != nil {
			return nil, newError(KindControlPlaneBad, "copy_parameters_to_clipboard", err)
		}
		clipboard.Write(clipboard.FmtText, data)
		return map[string]int{"bytes": len(data)}, nil
	}
}
