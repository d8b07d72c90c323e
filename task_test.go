//go:build windows

package wae

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestThreadpool(t *testing.T) *Threadpool {
	t.Helper()
	tp, err := NewBuilder().ThreadMinimum(2).ThreadMaximum(4).Build()
	if err != nil {
		t.Fatalf("failed to build threadpool: %v", err)
	}
	t.Cleanup(func() { tp.Close(true) })
	return tp
}

func TestSpawn_SimpleAddition(t *testing.T) {
	tp := newTestThreadpool(t)
	task := Spawn(tp.Handle(), func() int { return 1 + 1 })
	v, err := task.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestBlockOn_SimpleAddition(t *testing.T) {
	tp := newTestThreadpool(t)
	v, err := BlockOn(tp.Handle(), func() int { return 1 + 1 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestSpawn_PanicIsIsolatedAsUnexpectedError(t *testing.T) {
	tp := newTestThreadpool(t)
	task := Spawn(tp.Handle(), func() int {
		panic("kaboom")
	})
	_, err := task.Wait()
	if err == nil {
		t.Fatal("expected a panic to surface as an error")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if _, ok := e.Code(); ok {
		t.Fatal("expected a panic to not be reported as an OS error")
	}
}

func TestSpawn_PanicInOneTaskDoesNotAffectAnother(t *testing.T) {
	tp := newTestThreadpool(t)

	bad := Spawn(tp.Handle(), func() int { panic("isolated failure") })
	good := Spawn(tp.Handle(), func() int { return 42 })

	if _, err := bad.Wait(); err == nil {
		t.Fatal("expected the panicking task to report an error")
	}
	v, err := good.Wait()
	if err != nil {
		t.Fatalf("expected the other task to succeed, got error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestBlockOn_RecursiveBlockOnIsRejected(t *testing.T) {
	tp := newTestThreadpool(t)

	_, err := BlockOn(tp.Handle(), func() int {
		_, innerErr := BlockOn(tp.Handle(), func() int { return 1 })
		if !errors.Is(innerErr, ErrRecursiveBlockOn) {
			t.Errorf("expected ErrRecursiveBlockOn from the nested call, got %v", innerErr)
		}
		return 0
	})
	if err != nil {
		t.Fatalf("expected the outer BlockOn to succeed regardless, got %v", err)
	}
}

func TestYieldNow_DoesNotPanic(t *testing.T) {
	YieldNow()
}

func TestThreeYieldingTasksOnASmallPool(t *testing.T) {
	// Exercises the architecture note in Task's doc comment: dispatch
	// callbacks only launch a goroutine and return immediately, so the Go
	// scheduler - not the pool's own thread count - is what lets more
	// logical tasks make progress than there are native pool threads.
	tp, err := NewBuilder().ThreadMinimum(2).ThreadMaximum(2).Build()
	if err != nil {
		t.Fatalf("failed to build threadpool: %v", err)
	}
	defer tp.Close(true)

	const n = 3
	var wg sync.WaitGroup
	var completed atomic.Int32
	wg.Add(n)

	for i := 0; i < n; i++ {
		task := Spawn(tp.Handle(), func() int {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				YieldNow()
			}
			completed.Add(1)
			return 1
		})
		go func() {
			if _, err := task.Wait(); err != nil {
				t.Errorf("unexpected task error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for 3 yielding tasks on a 2-thread pool")
	}

	if completed.Load() != n {
		t.Fatalf("expected all %d tasks to complete, got %d", n, completed.Load())
	}
}

func TestTask_NotCancelledWithoutCancelCall(t *testing.T) {
	tp := newTestThreadpool(t)
	block := make(chan struct{})
	task := Spawn(tp.Handle(), func() int {
		<-block
		return 7
	})

	select {
	case <-task.Cancelled():
		t.Fatal("expected task to not yet be cancelled")
	default:
	}

	close(block)
	v, err := task.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Fatalf("expected 7, got %d", v)
	}
}

func TestTask_Detach_DoesNotPanic(t *testing.T) {
	tp := newTestThreadpool(t)
	task := Spawn(tp.Handle(), func() int { return 1 })
	task.Detach()
	if _, err := task.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
