package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// AcquisitionStatusReporter drives a live terminal status line off
// AcquisitionCoordinator.Status(), the way terminal_host.go puts stdin
// into raw mode for the interactive session: both reach for
// golang.org/x/term to talk to the controlling terminal directly
// rather than through fmt alone.
type AcquisitionStatusReporter struct {
	coord    *AcquisitionCoordinator
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
}

// NewAcquisitionStatusReporter builds a reporter polling coord's status
// every interval. interval <= 0 defaults to 250ms.
func NewAcquisitionStatusReporter(coord *AcquisitionCoordinator, interval time.Duration) *AcquisitionStatusReporter {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &AcquisitionStatusReporter{coord: coord, interval: interval}
}

// Start begins printing status lines to stdout until Stop is called.
// When stdout is a real terminal, the line is redrawn in place via a
// carriage return; when it's redirected (a log file, a pipe), each
// update is a plain newline-terminated line instead, so the output
// doesn't fill with unprintable \r bytes.
func (r *AcquisitionStatusReporter) Start() {
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopCh:
				if isTTY {
					fmt.Println()
				}
				return
			case <-ticker.C:
				r.printOnce(isTTY)
			}
		}
	}()
}

func (r *AcquisitionStatusReporter) printOnce(isTTY bool) {
	st := r.coord.Status()
	line := fmt.Sprintf("[%s] direction=%s cycle=%d missed_frames=%d dropped_camera_frames=%d",
		st.State, st.Direction, st.Cycle, st.MissedFrames, st.DroppedCameraFrames)

	if !isTTY {
		fmt.Println(line)
		return
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > len(line) {
		line += strings.Repeat(" ", width-len(line))
	}
	fmt.Print("\r" + line)
}

// Stop halts the reporter goroutine and blocks until it exits.
func (r *AcquisitionStatusReporter) Stop() {
	if r.stopCh == nil {
		return
	}
	close(r.stopCh)
	<-r.done
}
