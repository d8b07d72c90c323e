//go:build windows

package wae

import (
	"runtime"
	"sync"
)

// Priority selects the Vista+ threadpool callback priority a Handle submits
// work at. The underlying Win32 constants are TP_CALLBACK_PRIORITY_HIGH=0,
// NORMAL=1, LOW=2; Priority's Less method inverts that raw ordering so that
// High sorts above Normal sorts above Low, matching the direction callers
// actually expect from a priority type.
type Priority uint32

const (
	PriorityHigh   Priority = 0
	PriorityNormal Priority = 1
	PriorityLow    Priority = 2
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityNormal:
		return "Normal"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}

// Less reports whether p is of lower priority than other, i.e. whether
// other should run first when both are ready. It deliberately inverts the
// raw numeric TP_CALLBACK_PRIORITY_* ordering.
func (p Priority) Less(other Priority) bool {
	return uint32(p) > uint32(other)
}

// Threadpool owns a Vista+ native thread pool object plus its cleanup
// group. A zero Threadpool is not usable; construct one with New or
// NewBuilder().Build().
type Threadpool struct {
	handle Handle
	once   sync.Once
}

// New builds a Threadpool using default sizing (maximum 512 threads,
// minimum one thread per logical processor), matching NewBuilder().Build().
func New() (*Threadpool, error) {
	return NewBuilder().Build()
}

// Handle returns the pool's Handle, the value bound into a goroutine's
// context via Enter/TryEnter and threaded through spawned tasks and I/O
// operations.
func (p *Threadpool) Handle() *Handle {
	return &p.handle
}

// Close tears the pool down. It always blocks until callbacks (work item,
// I/O completion, wait) that are already running have finished. If wait is
// true, queued callbacks that have not started yet still run before Close
// returns; if false, they are cancelled and never run. Close is idempotent.
func (p *Threadpool) Close(wait bool) {
	p.once.Do(func() {
		if d := p.handle.diagnostics; d != nil {
			if conns, events := d.Outstanding(); conns > 0 || events > 0 {
				l := defaultLogger()
				if l.IsEnabled(LevelWarn) {
					l.Log(LogEntry{
						Level:    LevelWarn,
						Category: "pool",
						Message:  "closing pool with I/O objects still registered",
						Context:  map[string]interface{}{"conns": conns, "events": events},
					})
				}
			}
		}
		env := &p.handle.environ
		closeThreadpoolCleanupGroupMembers(env.CleanupGroup, !wait)
		closeThreadpoolCleanupGroup(env.CleanupGroup)
		closeThreadpool(env.Pool)
	})
}

// SetThreadMaximum adjusts the pool's maximum thread count.
func (p *Threadpool) SetThreadMaximum(maximum uint32) {
	p.handle.SetThreadMaximum(maximum)
}

// SetThreadMinimum adjusts the pool's minimum thread count (the number of
// threads the pool keeps warm). Returns an error if the underlying Win32
// call fails.
func (p *Threadpool) SetThreadMinimum(minimum uint32) error {
	return p.handle.SetThreadMinimum(minimum)
}

// Handle is a cheaply-cloneable reference to a Threadpool's callback
// environment. It is the value Enter/TryEnter bind as "current" for a
// goroutine, and the receiver of Spawn, MayBlock, and the I/O constructors.
type Handle struct {
	environ          tpCallbackEnviron
	metrics          *poolMetrics // nil unless WithMetrics(true) was set on the Builder
	diagnostics      *ioDiagnostics
	callbackInstance tpCallbackInstance
}

// SetThreadMaximum adjusts the underlying pool's maximum thread count.
func (h *Handle) SetThreadMaximum(maximum uint32) {
	setThreadpoolThreadMaximum(h.environ.Pool, maximum)
}

// SetThreadMinimum adjusts the underlying pool's minimum thread count.
func (h *Handle) SetThreadMinimum(minimum uint32) error {
	return setThreadpoolThreadMinimum(h.environ.Pool, minimum)
}

// WithPriority returns a copy of h that submits work at the given priority.
// The original Handle (and anything already bound to it) is unaffected.
func (h *Handle) WithPriority(priority Priority) *Handle {
	clone := *h
	setThreadpoolCallbackPriority(&clone.environ, uint32(priority))
	return &clone
}

// Builder configures and constructs a Threadpool.
type Builder struct {
	threadMaximum uint32
	threadMinimum uint32
	logger        Logger
	metrics       bool
}

// NewBuilder returns a Builder pre-populated with the same defaults the
// original draft uses: 512 maximum threads, and one minimum thread per
// logical processor (runtime.NumCPU stands in for the draft's
// GetSystemInfo call, which golang.org/x/sys/windows does not expose).
func NewBuilder() *Builder {
	return &Builder{
		threadMaximum: 512,
		threadMinimum: uint32(runtime.NumCPU()),
		logger:        defaultLogger(),
	}
}

// BuilderOption configures a Builder; see WithMaxThreads, WithMinThreads,
// WithLogger, and WithMetrics.
type BuilderOption interface {
	apply(*Builder)
}

type builderOptionFunc func(*Builder)

func (f builderOptionFunc) apply(b *Builder) { f(b) }

// WithMaxThreads sets the pool's maximum thread count.
func WithMaxThreads(n uint32) BuilderOption {
	return builderOptionFunc(func(b *Builder) { b.threadMaximum = n })
}

// WithMinThreads sets the pool's minimum (kept-warm) thread count.
func WithMinThreads(n uint32) BuilderOption {
	return builderOptionFunc(func(b *Builder) { b.threadMinimum = n })
}

// WithLogger sets the logger that Build installs as the package-level
// logger (the same one SetLogger sets). It is not scoped to the pool being
// built: it replaces the logger for every Threadpool in the process. The
// default is the package-level logger current when NewBuilder is called.
func WithLogger(l Logger) BuilderOption {
	return builderOptionFunc(func(b *Builder) { b.logger = l })
}

// WithMetrics enables runtime counters/percentile latency tracking for
// tasks and I/O operations created under this pool. Disabled by default.
func WithMetrics(enabled bool) BuilderOption {
	return builderOptionFunc(func(b *Builder) { b.metrics = enabled })
}

// With applies the given options and returns b for chaining.
func (b *Builder) With(opts ...BuilderOption) *Builder {
	for _, opt := range opts {
		opt.apply(b)
	}
	return b
}

// ThreadMaximum sets the pool's maximum thread count.
func (b *Builder) ThreadMaximum(max uint32) *Builder {
	b.threadMaximum = max
	return b
}

// ThreadMinimum sets the pool's minimum thread count.
func (b *Builder) ThreadMinimum(min uint32) *Builder {
	b.threadMinimum = min
	return b
}

// Build constructs the Threadpool, or returns an error if any of the
// underlying Win32 object-creation calls fail. On failure, any
// partially-constructed Win32 objects are torn down before returning.
func (b *Builder) Build() (*Threadpool, error) {
	pool, err := createThreadpool()
	if err != nil {
		return nil, err
	}

	setThreadpoolThreadMaximum(pool, b.threadMaximum)
	if err := setThreadpoolThreadMinimum(pool, b.threadMinimum); err != nil {
		closeThreadpool(pool)
		return nil, err
	}

	cleanupGroup, err := createThreadpoolCleanupGroup()
	if err != nil {
		closeThreadpool(pool)
		return nil, err
	}

	environ := newCallbackEnviron(pool, cleanupGroup, uint32(PriorityNormal))

	if b.logger != nil {
		setGlobalLogger(b.logger)
	}

	tp := &Threadpool{
		handle: Handle{environ: *environ, diagnostics: newIoDiagnostics()},
	}
	if b.metrics {
		tp.handle.metrics = newPoolMetrics()
	}
	return tp, nil
}
