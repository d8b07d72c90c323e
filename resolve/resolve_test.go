//go:build windows

package resolve

import (
	"net"
	"testing"

	"github.com/iocprt/wae"
)

func newTestHandle(t *testing.T) *wae.Handle {
	t.Helper()
	tp, err := wae.New()
	if err != nil {
		t.Fatalf("failed to build threadpool: %v", err)
	}
	t.Cleanup(func() { tp.Close(true) })
	return tp.Handle()
}

func TestResolve_LiteralIPv4_SkipsTheNetwork(t *testing.T) {
	h := newTestHandle(t)

	addrs, err := Resolve(h, "93.184.216.34", 443)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected exactly 1 address, got %d", len(addrs))
	}
	if !addrs[0].IP.Equal(net.ParseIP("93.184.216.34")) || addrs[0].Port != 443 {
		t.Fatalf("expected 93.184.216.34:443, got %v", addrs[0])
	}
}

func TestResolve_LiteralIPv6_SkipsTheNetwork(t *testing.T) {
	h := newTestHandle(t)

	addrs, err := Resolve(h, "::1", 8080)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected exactly 1 address, got %d", len(addrs))
	}
	if !addrs[0].IP.Equal(net.ParseIP("::1")) || addrs[0].Port != 8080 {
		t.Fatalf("expected [::1]:8080, got %v", addrs[0])
	}
}

func TestResolveHostPort_LiteralAddress(t *testing.T) {
	h := newTestHandle(t)

	addrs, err := ResolveHostPort(h, "127.0.0.1:9000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addrs) != 1 || addrs[0].Port != 9000 {
		t.Fatalf("expected 127.0.0.1:9000, got %v", addrs)
	}
}

func TestResolveHostPort_InvalidPort(t *testing.T) {
	h := newTestHandle(t)

	if _, err := ResolveHostPort(h, "127.0.0.1:not-a-port"); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}

func TestResolveHostPort_MissingPort(t *testing.T) {
	h := newTestHandle(t)

	if _, err := ResolveHostPort(h, "127.0.0.1"); err == nil {
		t.Fatal("expected an error for a missing port")
	}
}

func TestResolve_Localhost_RealLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping a real GetAddrInfoExW round trip in -short mode")
	}
	h := newTestHandle(t)

	addrs, err := Resolve(h, "localhost", 80)
	if err != nil {
		t.Fatalf("unexpected error resolving localhost: %v", err)
	}
	if len(addrs) == 0 {
		t.Fatal("expected at least one address for localhost")
	}
	for _, a := range addrs {
		if a.Port != 80 {
			t.Fatalf("expected port 80 on every resolved address, got %v", a)
		}
	}
}
