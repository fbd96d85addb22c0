//go:build !headless

// stimulus_backend_ebiten.go - ebiten presentation surface for the
// stimulus engine, adapted from the teacher's video_backend_ebiten.go:
// the buffered VSYNC channel and frame-buffer-behind-a-mutex pattern
// are kept; the CPU-bus/GUI coupling is replaced with a plain
// PresentationSurface the AcquisitionCoordinator drives directly.

package main

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

type ebitenSurface struct {
	mu          sync.RWMutex
	width       int
	height      int
	frameBuffer []byte
	windowImage *ebiten.Image
	vsyncChan   chan struct{}
	frameCount  uint64
	running     bool
}

// NewEbitenSurface builds a presentation surface backed by an ebiten
// window, matching the teacher's windowed-vsync-channel design.
func NewEbitenSurface() PresentationSurface {
	return &ebitenSurface{
		vsyncChan: make(chan struct{}, 1),
	}
}

func (s *ebitenSurface) Start() error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	ebiten.SetWindowTitle("ISI Stimulus")
	ebiten.SetVsyncEnabled(true)
	go func() {
		if err := ebiten.RunGame(s); err != nil {
			logError("ebiten presentation loop exited: %v", err)
		}
	}()
	<-s.vsyncChan
	return nil
}

func (s *ebitenSurface) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ebitenSurface) Present(frame []byte, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width != width || s.height != height {
		s.width, s.height = width, height
		s.windowImage = nil
	}
	rgba := make([]byte, width*height*4)
	for i, v := range frame {
		rgba[i*4] = v
		rgba[i*4+1] = v
		rgba[i*4+2] = v
		rgba[i*4+3] = 255
	}
	s.frameBuffer = rgba
	return nil
}

func (s *ebitenSurface) VSync() uint64 {
	<-s.vsyncChan
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameCount
}

// Update implements ebiten.Game.
func (s *ebitenSurface) Update() error {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return ebiten.Termination
	}
	return nil
}

// Draw implements ebiten.Game.
func (s *ebitenSurface) Draw(screen *ebiten.Image) {
	s.mu.Lock()
	if s.windowImage == nil && s.width > 0 && s.height > 0 {
		s.windowImage = ebiten.NewImage(s.width, s.height)
	}
	if s.windowImage != nil && len(s.frameBuffer) == s.width*s.height*4 {
		s.windowImage.WritePixels(s.frameBuffer)
	}
	s.frameCount++
	s.mu.Unlock()

	if s.windowImage != nil {
		screen.DrawImage(s.windowImage, nil)
	}

	select {
	case s.vsyncChan <- struct{}{}:
	default:
	}
}

// Layout implements ebiten.Game.
func (s *ebitenSurface) Layout(_, _ int) (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.width == 0 || s.height == 0 {
		return 640, 480
	}
	return s.width, s.height
}
