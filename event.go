//go:build windows

package wae

import (
	"runtime/cgo"
	"sync"

	"golang.org/x/sys/windows"
)

// eventCore is a one-shot overlapped-wait primitive: it drives a single
// pending kernel operation to completion using a manual-reset event plus a
// Vista+ TP_WAIT threadpool object, and hands the result back to whichever
// goroutine is waiting on it. Address resolution (resolve/) uses it
// directly; TCP reads/writes use the IOCP-integrated iohandle core instead
// (see iohandle.go), which dispatches through the pool's I/O completion
// port rather than a dedicated wait object per operation.
type eventCore struct {
	wait       tpWait
	handle     cgo.Handle
	state      ioState
	result     ioResult
	overlapped windows.Overlapped

	mu   sync.Mutex
	cond *sync.Cond
	done bool
}

// newEventCore creates an event core bound to the given threadpool
// callback environment. The returned core must be closed with Close once no
// operation is in flight.
func newEventCore(environ *tpCallbackEnviron) (*eventCore, error) {
	event, err := windows.CreateEvent(nil, 1 /* manual reset */, 0, nil)
	if err != nil {
		return nil, err
	}

	e := &eventCore{
		overlapped: windows.Overlapped{HEvent: event},
	}
	e.cond = sync.NewCond(&e.mu)
	e.handle = cgo.NewHandle(e)

	wait, err := createThreadpoolWait(e.handle, environ)
	if err != nil {
		e.handle.Delete()
		_ = windows.CloseHandle(event)
		return nil, err
	}
	e.wait = wait
	setThreadpoolWait(e.wait, event)
	return e, nil
}

// tpWaitCallback entry point (see zsyscall_windows.go).
func dispatchWaitCallback(h cgo.Handle, result uint32) {
	e := h.Value().(*eventCore)
	if e.state.callbackPending() {
		e.result.set(result, 0)
		e.state.setReady()
		e.mu.Lock()
		e.done = true
		e.cond.Broadcast()
		e.mu.Unlock()
	}
}

// run drives one overlapped operation through the event core to completion
// and blocks the calling goroutine until it either completes synchronously
// or the kernel operation finishes. schedule issues the underlying syscall
// and must return (pending=true, nil) if the kernel reported
// ERROR_IO_PENDING/WSA_IO_PENDING, or (false, err) for a synchronous
// result. If fileHandle is non-zero, run calls GetOverlappedResult against
// it once the wait fires to retrieve the final status; pass 0 when the
// schedule callback already carries the full result itself (e.g.
// GetAddrInfoExW, whose own return code is authoritative).
func (e *eventCore) run(fileHandle windows.Handle, schedule func(*windows.Overlapped) (pending bool, err error)) error {
	if !e.state.schedule() {
		return Unexpected("eventCore.run called while an operation is already in flight")
	}

	pending, err := schedule(&e.overlapped)
	if !pending {
		e.state.setIdle()
		return err
	}
	e.state.setPending()

	e.mu.Lock()
	for !e.done {
		e.cond.Wait()
	}
	e.done = false
	e.mu.Unlock()

	if err := windows.ResetEvent(e.overlapped.HEvent); err != nil {
		e.state.setIdle()
		return err
	}
	setThreadpoolWait(e.wait, e.overlapped.HEvent)

	_, resultErr := e.result.get()
	if resultErr != nil {
		e.state.setIdle()
		LogIOError(defaultLogger(), uintptr(e.handle), resultErr, false)
		return resultErr
	}
	if fileHandle != 0 {
		var transferred uint32
		getErr := windows.GetOverlappedResult(fileHandle, &e.overlapped, &transferred, true)
		e.state.setIdle()
		if getErr != nil {
			LogIOError(defaultLogger(), uintptr(e.handle), getErr, false)
		}
		return getErr
	}
	e.state.setIdle()
	return nil
}

// close releases the wait object and the manual-reset event. The caller
// must ensure no operation is in flight (isBusy() == false) first; callers
// that might race a cancellation should call MayBlock on their current
// Handle before calling close, mirroring the busy-spin the threadpool
// draft performs in its own teardown path.
func (e *eventCore) close() {
	waitForThreadpoolWaitCallbacks(e.wait, true)
	closeThreadpoolWait(e.wait)
	_ = windows.CloseHandle(e.overlapped.HEvent)
	e.handle.Delete()
}
