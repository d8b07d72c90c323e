//go:build windows

// Package tcp is the TCP transport built on top of the root package's IOCP
// core: an overlapped-mode Winsock socket per connection, registered with a
// Threadpool's completion port via wae.Conn, with AcceptEx/ConnectEx
// dispatched through a one-shot wae.Event the same way resolve/ dispatches
// GetAddrInfoExW. Grounded on the original draft's net::tcp module
// (socket.rs, listener.rs, stream.rs, read.rs, write.rs, split.rs).
package tcp

import (
	"net"

	"golang.org/x/sys/windows"
)

// newSocket creates an overlapped-mode TCP socket, matching the draft's
// socket::new (WSASocketW(AF_UNSPEC, SOCK_STREAM, IPPROTO_TCP, ...,
// WSA_FLAG_OVERLAPPED)). The address family is resolved later at bind/
// connect time, so AF_UNSPEC is used here, exactly as the draft does.
func newSocket() (windows.Handle, error) {
	return windows.WSASocket(windows.AF_UNSPEC, windows.SOCK_STREAM, windows.IPPROTO_TCP, nil, 0, windows.WSA_FLAG_OVERLAPPED)
}

func closeSocket(s windows.Handle) {
	_ = windows.Closesocket(s)
}

// tcpAddrToSockaddr converts a resolved net.TCPAddr into the
// golang.org/x/sys/windows.Sockaddr Bind/Listen/ConnectEx expect.
func tcpAddrToSockaddr(addr *net.TCPAddr) (windows.Sockaddr, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &windows.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	ip6 := addr.IP.To16()
	if ip6 == nil {
		ip6 = net.IPv6zero
	}
	sa := &windows.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip6)
	return sa, nil
}

// bindWildcard binds s to an ephemeral local port, trying an IPv6 wildcard
// first and falling back to IPv4, matching TcpStream::connect's bind step in
// stream.rs (a ConnectEx target socket must be explicitly bound first).
func bindWildcard(s windows.Handle) error {
	err := windows.Bind(s, &windows.SockaddrInet6{})
	if err == nil {
		return nil
	}
	return windows.Bind(s, &windows.SockaddrInet4{})
}

// sockaddrToTCPAddr converts a resolved windows.Sockaddr (as returned by
// RawSockaddrAny.Sockaddr, e.g. from GetAcceptExSockaddrs) into a
// *net.TCPAddr, or nil if sa is not an IPv4/IPv6 address.
func sockaddrToTCPAddr(sa windows.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *windows.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	case *windows.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, a.Addr[:])
		return &net.TCPAddr{IP: ip, Port: a.Port}
	default:
		return nil
	}
}
