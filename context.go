//go:build windows

package wae

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Rust's context module keys the current Handle off a thread_local, which
// works there because one OS thread runs one pool callback to completion.
// Go goroutines have no equivalent implicit identity, so the current Handle
// is tracked in a package-level map keyed by the calling goroutine's
// runtime-assigned id, extracted the same way the standard library's own
// race detector and many debugging tools do: by parsing the header line of
// runtime.Stack. No third-party goroutine-local-storage library appears
// anywhere in the corpus (this concern simply does not come up in an
// event-loop-shaped or IOCP-poller-shaped Go program, both of which thread
// their state explicitly instead), so this is intentionally implemented on
// the standard library alone.
var (
	currentMu sync.Mutex
	current   = map[uint64]*Handle{}
)

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:\n..."
	b := buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// ContextGuard restores the previous current Handle (if any) for this
// goroutine when dropped via Close. A zero ContextGuard is not meaningful;
// obtain one from Handle.Enter or Handle.TryEnter.
type ContextGuard struct {
	gid      uint64
	previous *Handle
	active   bool
}

// Close restores whatever Handle (if any) was current before the
// corresponding Enter/TryEnter call. Close is safe to call more than once;
// only the first call has an effect.
func (g *ContextGuard) Close() error {
	if !g.active {
		return nil
	}
	g.active = false
	currentMu.Lock()
	defer currentMu.Unlock()
	if g.previous == nil {
		delete(current, g.gid)
	} else {
		current[g.gid] = g.previous
	}
	return nil
}

// Current returns the Handle bound to the calling goroutine, panicking if
// none is current. Prefer TryCurrent in library code.
func Current() *Handle {
	h, err := TryCurrent()
	if err != nil {
		panic(err)
	}
	return h
}

// TryCurrent returns the Handle bound to the calling goroutine, or
// ErrNoContext if Enter/TryEnter has not been called on it (directly, or as
// the goroutine running a task spawned under a Handle — see task.go's
// Spawn, which calls TryEnter on the caller's behalf before invoking user
// code).
func TryCurrent() (*Handle, error) {
	currentMu.Lock()
	defer currentMu.Unlock()
	h, ok := current[goroutineID()]
	if !ok {
		return nil, ErrNoContext
	}
	return h, nil
}

// Enter binds h as the current Handle for the calling goroutine, panicking
// if one is already bound. Prefer TryEnter in library code.
func (h *Handle) Enter() *ContextGuard {
	g, err := h.TryEnter()
	if err != nil {
		panic(err)
	}
	return g
}

// TryEnter binds h as the current Handle for the calling goroutine,
// returning ErrRecursiveContext if one is already bound. The returned guard
// must be closed to unbind it.
func (h *Handle) TryEnter() (*ContextGuard, error) {
	gid := goroutineID()
	currentMu.Lock()
	defer currentMu.Unlock()
	if _, ok := current[gid]; ok {
		return nil, ErrRecursiveContext
	}
	current[gid] = h
	return &ContextGuard{gid: gid, active: true}, nil
}
