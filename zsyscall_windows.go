//go:build windows

package wae

// Hand-bound Win32 procedures absent from golang.org/x/sys/windows: the
// Vista+ native threadpool-object family (kernel32.dll). golang.org/x/sys/
// windows does not ship these (confirmed against its vendored source), so
// they are resolved at runtime via NewLazySystemDLL/Proc.Call, the same
// pattern win32io.go uses for CreateThreadpoolIo et al. The sibling overlapped
// address-resolution entry points (ws2_32.dll's GetAddrInfoExW/
// FreeAddrInfoExW) are bound the same way, but live in internal/winsvc
// instead, since resolve/ is their only caller.
//
// This file stands in for what `go run golang.org/x/sys/windows/mkwinsyscall`
// would otherwise generate from `//sys` directives; the bindings are written
// by hand and the file carries no `//sys` directives.

import (
	"runtime/cgo"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateThreadpool                  = modkernel32.NewProc("CreateThreadpool")
	procCloseThreadpool                   = modkernel32.NewProc("CloseThreadpool")
	procSetThreadpoolThreadMaximum        = modkernel32.NewProc("SetThreadpoolThreadMaximum")
	procSetThreadpoolThreadMinimum        = modkernel32.NewProc("SetThreadpoolThreadMinimum")
	procCreateThreadpoolCleanupGroup      = modkernel32.NewProc("CreateThreadpoolCleanupGroup")
	procCloseThreadpoolCleanupGroupMembers = modkernel32.NewProc("CloseThreadpoolCleanupGroupMembers")
	procCloseThreadpoolCleanupGroup       = modkernel32.NewProc("CloseThreadpoolCleanupGroup")
	procCreateThreadpoolWork              = modkernel32.NewProc("CreateThreadpoolWork")
	procSubmitThreadpoolWork              = modkernel32.NewProc("SubmitThreadpoolWork")
	procCloseThreadpoolWork               = modkernel32.NewProc("CloseThreadpoolWork")
	procCreateThreadpoolIo                = modkernel32.NewProc("CreateThreadpoolIo")
	procStartThreadpoolIo                 = modkernel32.NewProc("StartThreadpoolIo")
	procCancelThreadpoolIo                = modkernel32.NewProc("CancelThreadpoolIo")
	procCloseThreadpoolIo                 = modkernel32.NewProc("CloseThreadpoolIo")
	procCreateThreadpoolWait               = modkernel32.NewProc("CreateThreadpoolWait")
	procSetThreadpoolWait                  = modkernel32.NewProc("SetThreadpoolWait")
	procCloseThreadpoolWait                = modkernel32.NewProc("CloseThreadpoolWait")
	procWaitForThreadpoolWaitCallbacks     = modkernel32.NewProc("WaitForThreadpoolWaitCallbacks")
	procCallbackMayRunLong                 = modkernel32.NewProc("CallbackMayRunLong")
	procSetThreadpoolCallbackPriority      = modkernel32.NewProc("SetThreadpoolCallbackPriority")
)

// tpPool, tpCleanupGroup, tpWork, tpIo, tpWait, tpCallbackInstance are opaque
// Vista+ threadpool object handles. They are never dereferenced on the Go
// side, only threaded back through the Win32 API, so uintptr is sufficient
// (mirroring win32io.go's treatment of PTP_IO as uintptr).
type (
	tpPool             uintptr
	tpCleanupGroup     uintptr
	tpWork             uintptr
	tpIo               uintptr
	tpWait             uintptr
	tpCallbackInstance uintptr
)

// tpCallbackEnviron mirrors TP_CALLBACK_ENVIRON_V3 closely enough for our
// use: we only ever set Version, Pool, CleanupGroup, CallbackPriority and
// Size, and pass the struct by pointer to the Create*
// functions exactly as the kernel expects it laid out.
type tpCallbackEnviron struct {
	Version                   uint32
	_                         uint32 // padding to pointer alignment
	Pool                      tpPool
	CleanupGroup              tpCleanupGroup
	CleanupGroupCancelCallback uintptr
	RaceDll                   uintptr
	ActivationContext         uintptr
	FinalizationCallback      uintptr
	Flags                     uint32
	CallbackPriority          uint32
	Size                      uint32
}

const tpCallbackEnvironVersion3 = 3

func newCallbackEnviron(pool tpPool, cleanup tpCleanupGroup, priority uint32) *tpCallbackEnviron {
	e := &tpCallbackEnviron{
		Version:          tpCallbackEnvironVersion3,
		Pool:             pool,
		CleanupGroup:     cleanup,
		CallbackPriority: priority,
	}
	e.Size = uint32(unsafe.Sizeof(*e))
	return e
}

func createThreadpool() (tpPool, error) {
	r1, _, err := procCreateThreadpool.Call(0)
	if r1 == 0 {
		return 0, err
	}
	return tpPool(r1), nil
}

func closeThreadpool(pool tpPool) {
	_, _, _ = procCloseThreadpool.Call(uintptr(pool))
}

func setThreadpoolThreadMaximum(pool tpPool, n uint32) {
	_, _, _ = procSetThreadpoolThreadMaximum.Call(uintptr(pool), uintptr(n))
}

func setThreadpoolThreadMinimum(pool tpPool, n uint32) error {
	r1, _, err := procSetThreadpoolThreadMinimum.Call(uintptr(pool), uintptr(n))
	if r1 == 0 {
		return err
	}
	return nil
}

func createThreadpoolCleanupGroup() (tpCleanupGroup, error) {
	r1, _, err := procCreateThreadpoolCleanupGroup.Call()
	if r1 == 0 {
		return 0, err
	}
	return tpCleanupGroup(r1), nil
}

func closeThreadpoolCleanupGroupMembers(group tpCleanupGroup, cancelPending bool) {
	var cancel uintptr
	if cancelPending {
		cancel = 1
	}
	_, _, _ = procCloseThreadpoolCleanupGroupMembers.Call(uintptr(group), cancel, 0)
}

func closeThreadpoolCleanupGroup(group tpCleanupGroup) {
	_, _, _ = procCloseThreadpoolCleanupGroup.Call(uintptr(group))
}

var workCallbackPtr = syscall.NewCallback(workCallback)

// workCallback is invoked by the Windows thread pool for plain (non-IO,
// non-wait) work items, i.e. spawned tasks. context is a runtime/cgo.Handle
// value identifying the *taskCell to run (see task.go); passing a handle
// rather than a raw Go pointer keeps the referenced object visible to the
// garbage collector for as long as the kernel holds a reference to it.
func workCallback(instance tpCallbackInstance, context uintptr, work tpWork) uintptr {
	runSpawnedTask(cgo.Handle(context), instance)
	return 0
}

// createThreadpoolWork registers a work object whose callback will invoke
// runSpawnedTask(context) on a pool thread each time submitThreadpoolWork is
// called against it.
func createThreadpoolWork(context cgo.Handle, environ *tpCallbackEnviron) (tpWork, error) {
	r1, _, err := procCreateThreadpoolWork.Call(workCallbackPtr, uintptr(context), uintptr(unsafe.Pointer(environ)))
	if r1 == 0 {
		return 0, err
	}
	return tpWork(r1), nil
}

func submitThreadpoolWork(work tpWork) {
	_, _, _ = procSubmitThreadpoolWork.Call(uintptr(work))
}

func closeThreadpoolWork(work tpWork) {
	_, _, _ = procCloseThreadpoolWork.Call(uintptr(work))
}

var ioCallbackPtr = syscall.NewCallback(tpIoCallback)

func tpIoCallback(instance tpCallbackInstance, context uintptr, overlapped uintptr, ioResult uint32, bytes uintptr, io tpIo) uintptr {
	dispatchIOCallback(cgo.Handle(context), overlapped, uint32(ioResult), uint32(bytes))
	return 0
}

func createThreadpoolIo(handle windows.Handle, context cgo.Handle, environ *tpCallbackEnviron) (tpIo, error) {
	r1, _, err := procCreateThreadpoolIo.Call(
		uintptr(handle),
		ioCallbackPtr,
		uintptr(context),
		uintptr(unsafe.Pointer(environ)),
	)
	if r1 == 0 {
		return 0, err
	}
	return tpIo(r1), nil
}

func startThreadpoolIo(io tpIo) {
	_, _, _ = procStartThreadpoolIo.Call(uintptr(io))
}

func cancelThreadpoolIo(io tpIo) {
	_, _, _ = procCancelThreadpoolIo.Call(uintptr(io))
}

func closeThreadpoolIo(io tpIo) {
	_, _, _ = procCloseThreadpoolIo.Call(uintptr(io))
}

var waitCallbackPtr = syscall.NewCallback(tpWaitCallback)

func tpWaitCallback(instance tpCallbackInstance, context uintptr, wait tpWait, result uint32) uintptr {
	dispatchWaitCallback(cgo.Handle(context), result)
	return 0
}

func createThreadpoolWait(context cgo.Handle, environ *tpCallbackEnviron) (tpWait, error) {
	r1, _, err := procCreateThreadpoolWait.Call(waitCallbackPtr, uintptr(context), uintptr(unsafe.Pointer(environ)))
	if r1 == 0 {
		return 0, err
	}
	return tpWait(r1), nil
}

func setThreadpoolWait(wait tpWait, event windows.Handle) {
	_, _, _ = procSetThreadpoolWait.Call(uintptr(wait), uintptr(event), 0)
}

func closeThreadpoolWait(wait tpWait) {
	_, _, _ = procCloseThreadpoolWait.Call(uintptr(wait))
}

func waitForThreadpoolWaitCallbacks(wait tpWait, cancelPending bool) {
	var cancel uintptr
	if cancelPending {
		cancel = 1
	}
	_, _, _ = procWaitForThreadpoolWaitCallbacks.Call(uintptr(wait), cancel)
}

// callbackMayRunLong informs the pool that the current callback instance may
// block for an extended period, so the pool should consider spinning up an
// additional thread. Mirrors CallbackMayRunLong's bool return (false means
// the pool declined and the caller should yield promptly instead).
func callbackMayRunLong(instance tpCallbackInstance) bool {
	r1, _, _ := procCallbackMayRunLong.Call(uintptr(instance))
	return r1 != 0
}

func setThreadpoolCallbackPriority(environ *tpCallbackEnviron, priority uint32) {
	_, _, _ = procSetThreadpoolCallbackPriority.Call(uintptr(unsafe.Pointer(environ)), uintptr(priority))
}

