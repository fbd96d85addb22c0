//go:build headless

// stimulus_backend_headless.go - no-display presentation surface for
// CI and camera-only acquisition runs, mirroring the teacher's
// audio_backend_headless.go / gui_frontend_headless.go build-tag split.

package main

import (
	"sync"
	"sync/atomic"
)

type headlessSurface struct {
	mu      sync.Mutex
	width   int
	height  int
	frame   []byte
	counter uint64
	running atomic.Bool
}

// NewEbitenSurface is shadowed by the headless build: no GUI library
// is linked, but the name stays the same so callers don't need a build
// tag of their own.
func NewEbitenSurface() PresentationSurface {
	return &headlessSurface{}
}

func (s *headlessSurface) Start() error {
	s.running.Store(true)
	return nil
}

func (s *headlessSurface) Stop() error {
	s.running.Store(false)
	return nil
}

func (s *headlessSurface) Present(frame []byte, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.frame = frame
	atomic.AddUint64(&s.counter, 1)
	return nil
}

func (s *headlessSurface) VSync() uint64 {
	return atomic.LoadUint64(&s.counter)
}
