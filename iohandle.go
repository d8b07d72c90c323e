//go:build windows

package wae

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ioHandle is the IOCP-integrated core shared by every socket type: one
// kernel HANDLE, one Vista+ TP_IO object registered against it, and a read
// half plus a write half, each independently serialized (see state.go).
// Unlike eventCore (used for address resolution and for the tcp package's
// AcceptEx/ConnectEx calls), ioHandle dispatches through StartThreadpoolIo
// and the pool's own I/O completion port rather than a dedicated wait
// object; the tcp package drives its WSARecv/WSASend calls through it.
type ioHandle struct {
	win  windows.Handle
	tpio tpIo
	cgoH cgo.Handle
	rd   ioHalf
	_    [sizeOfCacheLine]byte // false-sharing pad: rd and wr are driven from different goroutines concurrently
	wr   ioHalf
}

// ioHalf is one direction (read or write) of an ioHandle. Only one
// operation is ever in flight per half; a second caller arriving while one
// is in flight blocks on cond until it is free, so the write-cancel-on-
// differing-buffer behaviour the original poll-based core needs (two
// differently-buffered poll attempts racing the same in-flight write) does
// not arise here — callers are serialized instead of interleaved.
type ioHalf struct {
	mu         sync.Mutex
	cond       *sync.Cond
	state      ioState
	result     ioResult
	buffer     ioBuffer
	overlapped windows.Overlapped
}

func newIoHalf(capacity int, fixed bool) ioHalf {
	h := ioHalf{buffer: newIoBuffer(capacity, fixed)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// newIoHandle registers win with the pool's I/O completion port via
// CreateThreadpoolIo and returns a ready-to-use ioHandle. readCapacity and
// writeCapacity size each half's initial buffer; fixed selects the buffer
// growth policy for both halves.
func newIoHandle(win windows.Handle, environ *tpCallbackEnviron, readCapacity, writeCapacity int, fixed bool) (*ioHandle, error) {
	h := &ioHandle{
		win:   win,
		rd: newIoHalf(readCapacity, fixed),
		wr: newIoHalf(writeCapacity, fixed),
	}
	h.cgoH = cgo.NewHandle(h)

	tpio, err := createThreadpoolIo(win, h.cgoH, environ)
	if err != nil {
		h.cgoH.Delete()
		return nil, err
	}
	h.tpio = tpio
	return h, nil
}

// dispatchIOCallback is the tpIoCallback entry point (see
// zsyscall_windows.go). It identifies which half the completing overlapped
// belongs to by pointer identity, then publishes the result and wakes
// whichever goroutine is blocked in read/write.
func dispatchIOCallback(h cgo.Handle, overlapped uintptr, errno, bytes uint32) {
	ih := h.Value().(*ioHandle)

	var half *ioHalf
	switch overlapped {
	case uintptr(unsafe.Pointer(&ih.rd.overlapped)):
		half = &ih.rd
	case uintptr(unsafe.Pointer(&ih.wr.overlapped)):
		half = &ih.wr
	default:
		return
	}

	half.mu.Lock()
	defer half.mu.Unlock()

	switch half.state.load() {
	case ioCancelledNoWait:
		if half.state.callbackCancelledNoWait() {
			half.result.set(errno, bytes)
			half.state.setReady()
			half.cond.Broadcast()
		}
	case ioCancelledWait:
		if half.state.callbackCancelledWait() {
			half.state.setIdle()
			half.cond.Broadcast()
		}
	default:
		if half.state.callbackPending() {
			half.result.set(errno, bytes)
			half.state.setReady()
			half.cond.Broadcast()
		}
	}
}

// close tears down the threadpool I/O registration. The caller must ensure
// neither half is busy first.
func (h *ioHandle) close() {
	if h.tpio != 0 {
		closeThreadpoolIo(h.tpio)
	}
	h.cgoH.Delete()
}

// scheduleFunc issues the underlying Winsock/Win32 overlapped call against
// buf and overlapped. It must return (pending=true, _, nil) on
// ERROR_IO_PENDING/WSA_IO_PENDING, or (false, n, err) for a synchronous
// outcome (err == nil on synchronous success, n the byte count).
type scheduleFunc func(buf []byte, overlapped *windows.Overlapped) (pending bool, n uint32, err error)

// read performs one read operation, blocking the calling goroutine until it
// completes. p is the caller-supplied destination buffer.
func (h *ioHandle) read(p []byte, schedule scheduleFunc) (int, error) {
	return h.rd.do(h.tpio, p, false, schedule)
}

// writeTo performs one write operation, blocking the calling goroutine until
// it completes. p is the caller-supplied source buffer.
func (h *ioHandle) writeTo(p []byte, schedule scheduleFunc) (int, error) {
	return h.wr.do(h.tpio, p, true, schedule)
}

func (half *ioHalf) do(tpio tpIo, p []byte, isWrite bool, schedule scheduleFunc) (int, error) {
	half.mu.Lock()
	defer half.mu.Unlock()

	for half.state.isBusy() {
		half.cond.Wait()
	}

	if half.state.isReady() {
		return half.finishReady(p, isWrite)
	}

	half.buffer.fit(len(p))
	n := half.buffer.cap(len(p))
	if isWrite {
		copy(half.buffer.data[:n], p[:n])
	}
	if !half.state.schedule() {
		return 0, Unexpected("ioHalf.do: lost idle->scheduling CAS while holding the half mutex")
	}
	half.state.setPending()
	startThreadpoolIo(tpio)

	pending, immediateN, err := schedule(half.buffer.data[:n], &half.overlapped)
	if !pending {
		// The kernel will not queue a callback for this StartThreadpoolIo
		// call (it completed, or failed, synchronously), so the pending
		// count it bumped must be unwound explicitly.
		cancelThreadpoolIo(tpio)
		half.state.setIdle()
		if err != nil {
			return 0, err
		}
		return int(immediateN), nil
	}

	for half.state.isBusy() {
		half.cond.Wait()
	}
	if half.state.isReady() {
		return half.finishReady(p, isWrite)
	}
	// The half drained straight back to idle: dispatchIOCallback's
	// ioCancelledWait branch fired, meaning cancel(wait=true) reclaimed
	// this operation before it ever produced a result.
	return 0, ErrCancelled
}

// finishReady consumes a published result. For reads, it delivers at most
// len(p) bytes and slides any remainder to the front of the buffer so a
// subsequent read can continue draining it without re-entering the kernel.
func (half *ioHalf) finishReady(p []byte, isWrite bool) (int, error) {
	transferred, err := half.result.get()
	if err != nil {
		half.state.setIdle()
		return 0, err
	}
	n := int(transferred)

	if isWrite {
		half.state.setIdle()
		return n, nil
	}

	read := len(p)
	if read > n {
		read = n
	}
	copy(p[:read], half.buffer.data[:read])
	if read < n {
		rem := n - read
		copy(half.buffer.data[:rem], half.buffer.data[read:n])
		half.result.set(0, uint32(rem))
		half.state.setReady()
	} else {
		half.state.setIdle()
	}
	return read, nil
}

// cancel requests cancellation of whatever operation is currently in flight
// on this half. wait selects CancelIoEx-then-wait versus
// CancelIoEx-without-waiting; there is no default, the caller always
// chooses.
func (half *ioHalf) cancel(win windows.Handle, wait bool) error {
	half.mu.Lock()
	defer half.mu.Unlock()
	if !half.state.isCancellable() {
		return nil
	}
	if err := windows.CancelIoEx(win, &half.overlapped); err != nil {
		return err
	}
	half.state.cancel(wait)
	if wait {
		for half.state.load() != ioIdle {
			half.cond.Wait()
		}
	}
	return nil
}
