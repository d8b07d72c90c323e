//go:build windows

// Package winsvc hand-binds the overlapped-capable wide-string address
// resolution entry points that golang.org/x/sys/windows does not export:
// ws2_32.dll's GetAddrInfoExW and FreeAddrInfoExW. It exists because
// resolve/ is their only caller and the binding has nothing to do with the
// threadpool/IOCP core in the root package.
package winsvc

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// NamespaceAll is NS_ALL, the namespace value that tells GetAddrInfoExW to
// query every registered name resolution provider (DNS, hosts file, etc).
const NamespaceAll = 0

var (
	modws2_32 = windows.NewLazySystemDLL("ws2_32.dll")

	procGetAddrInfoExW  = modws2_32.NewProc("GetAddrInfoExW")
	procFreeAddrInfoExW = modws2_32.NewProc("FreeAddrInfoExW")
)

// AddrInfoExW mirrors the ADDRINFOEXW struct from ws2tcpip.h closely enough
// for field-by-field access; Addr and Next are left as unsafe.Pointer/raw
// pointers rather than fully-typed so the layout does not depend on types
// this package does not otherwise need.
type AddrInfoExW struct {
	Flags     int32
	Family    int32
	SockType  int32
	Protocol  int32
	AddrLen   uintptr
	CanonName *uint16
	Addr      unsafe.Pointer
	Blob      unsafe.Pointer
	BlobLen   uintptr
	Provider  unsafe.Pointer
	Next      *AddrInfoExW
}

// GetAddrInfoExW issues an overlapped GetAddrInfoExW call. hints may be nil.
// On return, ret is 0 (NO_ERROR) for an immediate synchronous success,
// windows.WSA_IO_PENDING if the resolution is running asynchronously (the
// caller should wait on overlapped via a threadpool wait object and then
// call GetAddrInfoExOverlappedResult), or another WSA error code.
func GetAddrInfoExW(name, service *uint16, namespace uint32, hints *AddrInfoExW, result **AddrInfoExW, overlapped *windows.Overlapped) int32 {
	r1, _, _ := procGetAddrInfoExW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(unsafe.Pointer(service)),
		uintptr(namespace),
		0, // lpNspId
		uintptr(unsafe.Pointer(hints)),
		uintptr(unsafe.Pointer(result)),
		0, // timeout
		uintptr(unsafe.Pointer(overlapped)),
		0, // lpCompletionRoutine
		0, // lpNameHandle
	)
	return int32(r1)
}

// FreeAddrInfoExW releases the linked list GetAddrInfoExW allocated into
// *result.
func FreeAddrInfoExW(result *AddrInfoExW) {
	_, _, _ = procFreeAddrInfoExW.Call(uintptr(unsafe.Pointer(result)))
}
