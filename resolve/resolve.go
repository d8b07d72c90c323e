//go:build windows

// Package resolve is the async DNS layer: name resolution driven through a
// threadpool's overlapped I/O core instead of blocking the calling
// goroutine in a getaddrinfo call. It is the Go rendering of the original
// draft's net::socket_addr module (get_addr_info.rs, to_socket_addrs.rs).
package resolve

import (
	"net"
	"strconv"

	"golang.org/x/sys/windows"

	"github.com/iocprt/wae"
	"github.com/iocprt/wae/internal/winsvc"
)

// Resolve returns every address host resolves to, each carrying port. If
// host is already a literal IP address (dotted-quad or any form
// net.ParseIP accepts), Resolve returns it immediately without touching the
// network — matching the draft's str::parse fast path in to_socket_addrs.rs
// that skips get_addr_info entirely for addresses that are already literal.
// Otherwise it dispatches one overlapped GetAddrInfoExW call through h.
func Resolve(h *wae.Handle, host string, port uint16) ([]*net.TCPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []*net.TCPAddr{{IP: ip, Port: int(port)}}, nil
	}
	return lookup(h, host, port)
}

// ResolveHostPort splits "host:port" and resolves host. It is the
// equivalent of the draft's (&str, u16) and (String, u16) ToSocketAddrs
// impls collapsed into one entry point, since Go has no tuple types to
// overload on.
func ResolveHostPort(h *wae.Handle, hostport string) ([]*net.TCPAddr, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, &net.AddrError{Err: "invalid port", Addr: hostport}
	}
	return Resolve(h, host, uint16(port))
}

func lookup(h *wae.Handle, host string, port uint16) ([]*net.TCPAddr, error) {
	ev, err := wae.NewEvent(h)
	if err != nil {
		return nil, err
	}
	defer ev.Close()

	nameW, err := windows.UTF16PtrFromString(host)
	if err != nil {
		return nil, err
	}
	serviceW, err := windows.UTF16PtrFromString(strconv.Itoa(int(port)))
	if err != nil {
		return nil, err
	}

	hints := winsvc.AddrInfoExW{Family: windows.AF_UNSPEC}
	var result *winsvc.AddrInfoExW

	runErr := ev.Run(0, func(overlapped *windows.Overlapped) (bool, error) {
		ret := winsvc.GetAddrInfoExW(nameW, serviceW, winsvc.NamespaceAll, &hints, &result, overlapped)
		switch ret {
		case 0:
			return false, nil
		case 997: // WSA_IO_PENDING
			return true, nil
		default:
			return false, wae.OSError(uint32(ret))
		}
	})
	if runErr != nil {
		return nil, &net.DNSError{Err: runErr.Error(), Name: host}
	}
	if result != nil {
		defer winsvc.FreeAddrInfoExW(result)
	}

	var addrs []*net.TCPAddr
	for cur := result; cur != nil; cur = cur.Next {
		if addr := sockaddrToTCPAddr(cur); addr != nil {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return nil, &net.DNSError{Err: "no addresses found", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func sockaddrToTCPAddr(ai *winsvc.AddrInfoExW) *net.TCPAddr {
	if ai.Addr == nil {
		return nil
	}
	rsa := (*windows.RawSockaddrAny)(ai.Addr)
	sa, err := rsa.Sockaddr()
	if err != nil {
		return nil
	}
	switch a := sa.(type) {
	case *windows.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	case *windows.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, a.Addr[:])
		zone := ""
		if a.ZoneId != 0 {
			zone = strconv.FormatUint(uint64(a.ZoneId), 10)
		}
		return &net.TCPAddr{IP: ip, Port: a.Port, Zone: zone}
	default:
		return nil
	}
}
