//go:build windows

// Package wae is a Windows-native asynchronous task runtime and I/O reactor
// built directly on the Vista+ thread pool API and I/O completion ports
// (IOCP). There is no green-thread scheduler or event-loop tick: every
// [Task] is a goroutine dispatched through a [Threadpool]'s native worker
// threads, and every overlapped I/O operation is driven to completion by
// either a handle's own completion-port registration ([Conn]) or a
// dedicated one-shot wait object ([Event]).
//
// # Architecture
//
// A [Threadpool], built with [NewBuilder], owns a Vista+ TP_POOL and a
// TP_CLEANUP_GROUP; [Threadpool.Handle] hands out a [Handle], the
// cheaply-cloneable reference used throughout the rest of the API. [Spawn]
// dispatches a function onto a Handle's pool; [BlockOn] spawns and waits;
// [YieldNow] cooperatively yields the calling goroutine. [Conn] registers an
// overlapped-mode kernel HANDLE (a Winsock SOCKET, a named pipe, ...) with a
// Handle's completion port and serializes its read and write halves
// independently. [Event] drives a single pending kernel operation (AcceptEx,
// ConnectEx, GetAddrInfoExW, ...) through a dedicated TP_WAIT object.
//
// The tcp subpackage builds a TCP transport directly on [Conn] and [Event];
// the resolve subpackage builds asynchronous DNS resolution on [Event].
//
// # Platform Support
//
// This package is Windows-only: every source file below carries a
// `//go:build windows` constraint, and the native thread pool and IOCP APIs
// it binds against (CreateThreadpoolWork, CreateThreadpoolIo,
// CreateThreadpoolWait, GetAddrInfoExW) have no analog on other platforms.
//
// # Thread Safety
//
// A [Handle] may be shared across goroutines; [Handle.WithPriority] returns
// an independent copy rather than mutating the original. [Conn]'s read and
// write halves may be driven concurrently from different goroutines (each
// serializes its own direction internally), but a single direction must not
// be driven concurrently from two goroutines at once — exactly one read and
// one write may be in flight on a Conn at a time.
//
// # Usage
//
//	tp, err := wae.NewBuilder().Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tp.Close(true)
//
//	h := tp.Handle()
//	task := wae.Spawn(h, func() int {
//	    return 42
//	})
//	result, err := task.Wait()
//
// # Error Types
//
// [Error] wraps both invariant violations ([Unexpected]) and adapted
// Windows error codes ([OSError]); [ErrRecursiveBlockOn] is returned by
// [BlockOn] when called from within another BlockOn, including from the fn
// that BlockOn is running.
package wae
