//go:build windows

package wae

import "testing"

func TestIoResult_SuccessRoundTrip(t *testing.T) {
	var r ioResult
	r.set(0, 128)
	n, err := r.get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 128 {
		t.Fatalf("expected 128 bytes transferred, got %d", n)
	}
}

func TestIoResult_ErrorRoundTrip(t *testing.T) {
	var r ioResult
	r.set(5, 0) // ERROR_ACCESS_DENIED
	n, err := r.get()
	if err == nil {
		t.Fatal("expected an error for a non-zero errno")
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes transferred on error, got %d", n)
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	code, ok := e.Code()
	if !ok || code != 5 {
		t.Fatalf("expected OS error code 5, got %d, %v", code, ok)
	}
}
