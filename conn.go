//go:build windows

package wae

import (
	"time"

	"golang.org/x/sys/windows"
)

// Conn is the exported, socket-agnostic IOCP core other packages in this
// module (tcp, and any future transport) build on: one kernel HANDLE
// registered with a pool's completion port, with independently serialized
// read and write halves. It is the externally usable face of ioHandle.
type Conn struct {
	h           *ioHandle
	metrics     *poolMetrics
	diagnostics *ioDiagnostics
	id          uint64
}

type connConfig struct {
	readCapacity  int
	writeCapacity int
	fixed         bool
}

// ConnOption configures NewConn.
type ConnOption func(*connConfig)

// WithReadCapacity sets the initial size of the read half's buffer.
func WithReadCapacity(n int) ConnOption {
	return func(c *connConfig) { c.readCapacity = n }
}

// WithWriteCapacity sets the initial size of the write half's buffer.
func WithWriteCapacity(n int) ConnOption {
	return func(c *connConfig) { c.writeCapacity = n }
}

// WithFixedBuffers disables the elastic-growth buffer policy: both halves
// are capped at their configured capacity instead of doubling to fit a
// larger caller-supplied slice.
func WithFixedBuffers(fixed bool) ConnOption {
	return func(c *connConfig) { c.fixed = fixed }
}

// NewConn registers win, an overlapped-mode kernel HANDLE (typically a
// Winsock SOCKET coerced to windows.Handle), with h's I/O completion port.
func NewConn(h *Handle, win windows.Handle, opts ...ConnOption) (*Conn, error) {
	cfg := connConfig{readCapacity: 4096, writeCapacity: 4096}
	for _, opt := range opts {
		opt(&cfg)
	}
	ih, err := newIoHandle(win, &h.environ, cfg.readCapacity, cfg.writeCapacity, cfg.fixed)
	if err != nil {
		return nil, err
	}
	c := &Conn{h: ih, metrics: h.metrics, diagnostics: h.diagnostics}
	if c.diagnostics != nil {
		c.id = c.diagnostics.conns.track(ih)
	}
	return c, nil
}

// Scheduler issues the overlapped Winsock/Win32 call for one read or write
// attempt. It must return (pending=true, 0, nil) on
// ERROR_IO_PENDING/WSA_IO_PENDING, or (false, n, err) for a synchronous
// outcome (err nil on synchronous success, n the transferred byte count).
type Scheduler func(buf []byte, overlapped *windows.Overlapped) (pending bool, n uint32, err error)

// Read performs one overlapped read, blocking the calling goroutine until it
// completes. p is the caller-supplied destination.
func (c *Conn) Read(p []byte, schedule Scheduler) (int, error) {
	start := time.Now()
	n, err := c.h.read(p, scheduleFunc(schedule))
	if c.metrics != nil {
		c.metrics.recordIO(time.Since(start), err != nil)
	}
	return n, err
}

// Write performs one overlapped write, blocking the calling goroutine until
// it completes. p is the caller-supplied source.
func (c *Conn) Write(p []byte, schedule Scheduler) (int, error) {
	start := time.Now()
	n, err := c.h.writeTo(p, scheduleFunc(schedule))
	if c.metrics != nil {
		c.metrics.recordIO(time.Since(start), err != nil)
	}
	return n, err
}

// CancelRead requests cancellation of whatever read is currently in flight.
// wait selects whether CancelRead blocks until the half has returned to
// idle.
func (c *Conn) CancelRead(win windows.Handle, wait bool) error {
	return c.h.rd.cancel(win, wait)
}

// CancelWrite requests cancellation of whatever write is currently in
// flight.
func (c *Conn) CancelWrite(win windows.Handle, wait bool) error {
	return c.h.wr.cancel(win, wait)
}

// Close tears down the I/O completion port registration. The caller must
// ensure neither half is busy first (cancel-and-wait both directions).
func (c *Conn) Close() {
	c.h.close()
	if c.diagnostics != nil {
		c.diagnostics.conns.forget(c.id)
	}
}

// Event is the exported face of eventCore, the one-shot overlapped-wait
// primitive used outside this package for operations that complete via a
// dedicated wait object rather than a handle's own completion port
// registration (address resolution, AcceptEx/ConnectEx dispatch).
type Event struct {
	e           *eventCore
	metrics     *poolMetrics
	diagnostics *ioDiagnostics
	id          uint64
}

// NewEvent creates an event bound to h's callback environment.
func NewEvent(h *Handle) (*Event, error) {
	e, err := newEventCore(&h.environ)
	if err != nil {
		return nil, err
	}
	ev := &Event{e: e, metrics: h.metrics, diagnostics: h.diagnostics}
	if ev.diagnostics != nil {
		ev.id = ev.diagnostics.events.track(e)
	}
	return ev, nil
}

// Run drives one overlapped operation to completion; see eventCore.run.
func (ev *Event) Run(fileHandle windows.Handle, schedule func(*windows.Overlapped) (pending bool, err error)) error {
	start := time.Now()
	err := ev.e.run(fileHandle, schedule)
	if ev.metrics != nil {
		ev.metrics.recordIO(time.Since(start), err != nil)
	}
	return err
}

// Close releases the event's wait object and manual-reset event handle.
func (ev *Event) Close() {
	ev.e.close()
	if ev.diagnostics != nil {
		ev.diagnostics.events.forget(ev.id)
	}
}
