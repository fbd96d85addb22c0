package main

import (
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func TestIPCServer_DispatchesPingOverSocket(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	sockPath := filepath.Join(t.TempDir(), "test.sock")

	srv, err := newIPCServerAt(sockPath, cp)
	if err != nil {
		t.Fatalf("newIPCServerAt: %v", err)
	}
	srv.Start()
	defer srv.Stop()

	conn, err := net.DialTimeout("unix", sockPath, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	req, _ := json.Marshal(CommandRequest{Cmd: "ping"})
	if _, err := conn.Write(req); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var resp CommandResponse
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok response, got %+v", resp)
	}
}

func TestNewIPCServerAt_RecoversFromStaleSocket(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	sockPath := filepath.Join(t.TempDir(), "stale.sock")

	first, err := newIPCServerAt(sockPath, cp)
	if err != nil {
		t.Fatalf("first bind: %v", err)
	}
	first.Start()
	// Simulate a crash: close the listener without removing the socket
	// file or the accept loop's cleanup path.
	first.listener.(*net.UnixListener).SetUnlinkOnClose(false)
	first.listener.Close()
	<-first.done

	second, err := newIPCServerAt(sockPath, cp)
	if err != nil {
		t.Fatalf("expected stale-socket recovery to succeed, got: %v", err)
	}
	second.Stop()
}
