//go:build windows

package wae

import (
	"bytes"
	"testing"
)

func TestPriority_LessInvertsRawOrdering(t *testing.T) {
	if !PriorityLow.Less(PriorityNormal) {
		t.Fatal("expected Low to be less than Normal")
	}
	if !PriorityNormal.Less(PriorityHigh) {
		t.Fatal("expected Normal to be less than High")
	}
	if PriorityHigh.Less(PriorityNormal) {
		t.Fatal("expected High to not be less than Normal")
	}
}

func TestPriority_String(t *testing.T) {
	cases := map[Priority]string{
		PriorityHigh:   "High",
		PriorityNormal: "Normal",
		PriorityLow:    "Low",
		Priority(99):   "Unknown",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Priority(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestBuilder_Defaults(t *testing.T) {
	b := NewBuilder()
	if b.threadMaximum != 512 {
		t.Fatalf("expected default max threads 512, got %d", b.threadMaximum)
	}
	if b.threadMinimum == 0 {
		t.Fatal("expected a non-zero default minimum thread count")
	}
}

func TestNew_BuildsAUsablePool(t *testing.T) {
	tp, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tp.Close(true)

	v, err := BlockOn(tp.Handle(), func() int { return 5 })
	if err != nil || v != 5 {
		t.Fatalf("expected 5, nil; got %d, %v", v, err)
	}
}

func TestBuilder_WithOptionsAppliesAll(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelDebug, &buf)

	tp, err := NewBuilder().With(
		WithMaxThreads(8),
		WithMinThreads(1),
		WithLogger(logger),
		WithMetrics(true),
	).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer tp.Close(true)

	if _, ok := tp.Handle().Metrics(); !ok {
		t.Fatal("expected WithMetrics(true) to enable metrics tracking")
	}
}

func TestBuilder_WithMetricsDisabledByDefault(t *testing.T) {
	tp, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer tp.Close(true)

	if _, ok := tp.Handle().Metrics(); ok {
		t.Fatal("expected metrics disabled without WithMetrics(true)")
	}
}

func TestThreadpoolClose_Idempotent(t *testing.T) {
	tp, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	tp.Close(true)
	tp.Close(true) // must not panic or double-free
}

func TestThreadpoolClose_WarnsOnOutstandingConn(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewBuilder().With(WithLogger(NewWriterLogger(LevelWarn, &buf))).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ih := &ioHandle{}
	tp.handle.diagnostics.conns.track(ih)

	tp.Close(true)

	if !bytes.Contains(buf.Bytes(), []byte("still registered")) {
		t.Fatalf("expected a leak warning to be logged, got %q", buf.String())
	}
}

func TestHandle_WithPriority_DoesNotMutateOriginal(t *testing.T) {
	tp, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer tp.Close(true)

	h := tp.Handle()
	clone := h.WithPriority(PriorityHigh)
	if clone == h {
		t.Fatal("expected WithPriority to return a distinct Handle")
	}
	if h.environ.CallbackPriority != uint32(PriorityNormal) {
		t.Fatalf("expected the original Handle's priority to remain Normal, got %d", h.environ.CallbackPriority)
	}
	if clone.environ.CallbackPriority != uint32(PriorityHigh) {
		t.Fatalf("expected the clone's priority to be High, got %d", clone.environ.CallbackPriority)
	}
}
