//go:build windows

package wae

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// poolMetrics accumulates runtime statistics for a Handle created with
// Builder.WithMetrics(true). Nil is a valid, zero-cost value: every caller
// checks for nil before recording, so pools built without WithMetrics pay
// nothing for this machinery.
//
// Thread Safety: every method is safe to call from any goroutine.
type poolMetrics struct {
	Task LatencyMetrics
	IO   LatencyMetrics

	tasksSpawned   atomic.Int64
	tasksCompleted atomic.Int64
	tasksPanicked  atomic.Int64
	ioCompleted    atomic.Int64
	ioFailed       atomic.Int64

	tps *TPSCounter
}

func newPoolMetrics() *poolMetrics {
	return &poolMetrics{
		tps: NewTPSCounter(10*time.Second, 100*time.Millisecond),
	}
}

// recordTask records one task's end-to-end execution latency (Spawn's fn
// call, excluding dispatch queueing).
func (m *poolMetrics) recordTask(d time.Duration, panicked bool) {
	m.tasksSpawned.Add(1)
	if panicked {
		m.tasksPanicked.Add(1)
	} else {
		m.tasksCompleted.Add(1)
		m.tps.Increment()
	}
	m.Task.Record(d)
}

// recordIO records one overlapped I/O operation's latency, from the
// scheduling call through completion.
func (m *poolMetrics) recordIO(d time.Duration, failed bool) {
	if failed {
		m.ioFailed.Add(1)
	} else {
		m.ioCompleted.Add(1)
	}
	m.IO.Record(d)
}

// PoolMetrics is a point-in-time snapshot of a Handle's runtime statistics.
// See Handle.Metrics.
type PoolMetrics struct {
	TasksSpawned   int64
	TasksCompleted int64
	TasksPanicked  int64
	IOCompleted    int64
	IOFailed       int64
	TaskTPS        float64
	TaskLatency    LatencyMetrics
	IOLatency      LatencyMetrics
}

// Metrics returns a snapshot of h's runtime statistics, and false if h's
// pool was built without Builder.WithMetrics(true).
func (h *Handle) Metrics() (PoolMetrics, bool) {
	if h.metrics == nil {
		return PoolMetrics{}, false
	}
	m := h.metrics
	m.Task.Sample()
	m.IO.Sample()
	return PoolMetrics{
		TasksSpawned:   m.tasksSpawned.Load(),
		TasksCompleted: m.tasksCompleted.Load(),
		TasksPanicked:  m.tasksPanicked.Load(),
		IOCompleted:    m.ioCompleted.Load(),
		IOFailed:       m.ioFailed.Load(),
		TaskTPS:        m.tps.TPS(),
		TaskLatency:    m.Task,
		IOLatency:      m.IO,
	}, true
}

// LatencyMetrics tracks latency distribution with percentiles.
// Uses the P-Square algorithm for O(1) streaming percentile estimation.
type LatencyMetrics struct {
	psquare *pSquareMultiQuantile

	mu sync.RWMutex

	// Ring buffer kept alongside the P-Square estimator so that small
	// sample counts (< 5) get exact percentiles instead of an estimator
	// still warming up.
	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration

	Mean time.Duration
	Sum  time.Duration
}

// sampleSize is the maximum number of latency samples retained by the
// ring buffer used for small-count exact percentiles.
const sampleSize = 1000

// Record records a latency sample. O(1) via the P-Square estimator.
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(duration))

	if l.sampleCount >= sampleSize {
		old := l.samples[l.sampleIdx]
		l.Sum -= old
	}
	l.samples[l.sampleIdx] = duration
	l.Sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample computes percentiles from collected samples and returns the
// number of samples used. For counts below 5 it sorts the ring buffer
// exactly rather than trusting an estimator still warming up.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	if count < 5 || l.psquare == nil {
		sorted := make([]time.Duration, count)
		copy(sorted, l.samples[:count])
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		l.P50 = sorted[percentileIndex(count, 50)]
		l.P90 = sorted[percentileIndex(count, 90)]
		l.P95 = sorted[percentileIndex(count, 95)]
		l.P99 = sorted[percentileIndex(count, 99)]
		l.Max = sorted[count-1]
		l.Mean = l.Sum / time.Duration(count)
		return count
	}

	l.P50 = time.Duration(l.psquare.Quantile(0))
	l.P90 = time.Duration(l.psquare.Quantile(1))
	l.P95 = time.Duration(l.psquare.Quantile(2))
	l.P99 = time.Duration(l.psquare.Quantile(3))
	l.Max = time.Duration(l.psquare.Max())
	l.Mean = l.Sum / time.Duration(count)
	return count
}

func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}

// TPSCounter tracks events per second with a rolling window, using a ring
// buffer of fixed-duration buckets that rotate out as time advances.
type TPSCounter struct {
	lastRotation atomic.Value // time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a counter with the given rolling window and bucket
// granularity. Both must be positive and bucketSize must not exceed
// windowSize.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	if windowSize <= 0 {
		panic("wae: windowSize must be positive")
	}
	if bucketSize <= 0 {
		panic("wae: bucketSize must be positive")
	}
	if bucketSize > windowSize {
		panic("wae: bucketSize cannot exceed windowSize")
	}

	bucketCount := int(windowSize / bucketSize)
	counter := &TPSCounter{
		buckets:    make([]int64, bucketCount),
		bucketSize: bucketSize,
		windowSize: windowSize,
	}
	counter.lastRotation.Store(time.Now())
	return counter
}

// Increment records one event. O(1).
func (t *TPSCounter) Increment() {
	t.rotate()
	t.mu.Lock()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

func (t *TPSCounter) rotate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	lastRotation := t.lastRotation.Load().(time.Time)
	elapsed := now.Sub(lastRotation)

	advance := int64(elapsed) / int64(t.bucketSize)
	if advance < 0 || advance > int64(len(t.buckets)) {
		advance = int64(len(t.buckets))
	}
	bucketsToAdvance := int(advance)

	if bucketsToAdvance >= len(t.buckets) {
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.lastRotation.Store(now)
		return
	}
	if bucketsToAdvance <= 0 {
		return
	}

	copy(t.buckets, t.buckets[bucketsToAdvance:])
	for i := len(t.buckets) - bucketsToAdvance; i < len(t.buckets); i++ {
		t.buckets[i] = 0
	}
	t.lastRotation.Store(lastRotation.Add(time.Duration(bucketsToAdvance) * t.bucketSize))
}

// TPS returns the current rate over the configured window.
func (t *TPSCounter) TPS() float64 {
	t.rotate()

	t.mu.Lock()
	defer t.mu.Unlock()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}
	monitoredDuration := float64(len(t.buckets)) * t.bucketSize.Seconds()
	return float64(sum) / monitoredDuration
}
