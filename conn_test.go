//go:build windows

package wae

import (
	"testing"

	"golang.org/x/sys/windows"
)

// newTestOverlappedSocket returns an overlapped-mode TCP socket suitable for
// registering with CreateThreadpoolIo, without needing a live connection.
func newTestOverlappedSocket(t *testing.T) windows.Handle {
	t.Helper()
	s, err := windows.WSASocket(windows.AF_INET, windows.SOCK_STREAM, windows.IPPROTO_TCP, nil, 0, windows.WSA_FLAG_OVERLAPPED)
	if err != nil {
		t.Fatalf("failed to create overlapped socket: %v", err)
	}
	t.Cleanup(func() { _ = windows.Closesocket(s) })
	return s
}

func TestNewEvent_TracksAndForgetsDiagnostics(t *testing.T) {
	tp := newTestThreadpool(t)
	h := tp.Handle()

	conns, events := h.diagnostics.Outstanding()
	if conns != 0 || events != 0 {
		t.Fatalf("expected a fresh pool to report zero outstanding, got %d/%d", conns, events)
	}

	ev, err := NewEvent(h)
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}

	_, events = h.diagnostics.Outstanding()
	if events != 1 {
		t.Fatalf("expected 1 outstanding event after NewEvent, got %d", events)
	}

	ev.Close()

	_, events = h.diagnostics.Outstanding()
	if events != 0 {
		t.Fatalf("expected 0 outstanding events after Close, got %d", events)
	}
}

func TestNewConn_WithOptions(t *testing.T) {
	tp := newTestThreadpool(t)
	h := tp.Handle()

	win := newTestOverlappedSocket(t)
	c, err := NewConn(h, win, WithReadCapacity(8192), WithWriteCapacity(1024), WithFixedBuffers(true))
	if err != nil {
		t.Fatalf("NewConn failed: %v", err)
	}
	defer c.Close()

	if len(c.h.rd.buffer.data) != 8192 {
		t.Fatalf("expected read buffer capacity 8192, got %d", len(c.h.rd.buffer.data))
	}
	if len(c.h.wr.buffer.data) != 1024 {
		t.Fatalf("expected write buffer capacity 1024, got %d", len(c.h.wr.buffer.data))
	}
	if !c.h.rd.buffer.fixed || !c.h.wr.buffer.fixed {
		t.Fatal("expected WithFixedBuffers(true) to disable elastic growth on both halves")
	}

	conns, _ := h.diagnostics.Outstanding()
	if conns != 1 {
		t.Fatalf("expected 1 outstanding conn, got %d", conns)
	}
}
