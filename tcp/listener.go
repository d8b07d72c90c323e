//go:build windows

package tcp

import (
	"net"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/iocprt/wae"
	"github.com/iocprt/wae/resolve"
)

// addrSpace is the per-side buffer AcceptEx needs for GetAcceptExSockaddrs
// to have room to write a local and a remote address into, sized the same
// way the draft's TcpListener::ADDR_SPACE is: sizeof(SOCKADDR_IN6) + 16.
const addrSpace = int(unsafe.Sizeof(windows.RawSockaddrInet6{})) + 16

// TcpListener accepts inbound TCP connections. Construct one with Bind.
type TcpListener struct {
	h    *wae.Handle
	sock windows.Handle
	addr *net.TCPAddr
}

// Bind resolves address (host:port, where host may be a literal IP or a
// name resolved via resolve.ResolveHostPort) and starts listening on it.
func Bind(h *wae.Handle, address string) (*TcpListener, error) {
	addrs, err := resolve.ResolveHostPort(h, address)
	if err != nil {
		return nil, err
	}

	sock, err := newSocket()
	if err != nil {
		return nil, err
	}

	var bound *net.TCPAddr
	var lastErr error
	for _, a := range addrs {
		sa, err := tcpAddrToSockaddr(a)
		if err != nil {
			lastErr = err
			continue
		}
		if err := windows.Bind(sock, sa); err != nil {
			lastErr = err
			continue
		}
		bound = a
		break
	}
	if bound == nil {
		closeSocket(sock)
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &net.AddrError{Err: "the provided address couldn't be resolved", Addr: address}
	}

	if err := windows.Listen(sock, windows.SOMAXCONN); err != nil {
		closeSocket(sock)
		return nil, err
	}

	// Read back the address actually bound, so a requested port 0 reports
	// the ephemeral port the system assigned.
	if sa, err := windows.Getsockname(sock); err == nil {
		if a := sockaddrToTCPAddr(sa); a != nil {
			bound = a
		}
	}

	return &TcpListener{h: h, sock: sock, addr: bound}, nil
}

// LocalAddr returns the address the listener is bound to.
func (l *TcpListener) LocalAddr() *net.TCPAddr {
	return l.addr
}

// Close stops accepting new connections.
func (l *TcpListener) Close() error {
	closeSocket(l.sock)
	return nil
}

// Accept waits for and returns the next inbound connection, blocking the
// calling goroutine. It is the Go rendering of the draft's Accept future
// (listener.rs): create the client socket up front, dispatch AcceptEx
// through a one-shot event, then register the accepted socket with the
// pool's completion port for its own reads/writes.
func (l *TcpListener) Accept() (*TcpStream, *net.TCPAddr, error) {
	client, err := newSocket()
	if err != nil {
		return nil, nil, err
	}

	ev, err := wae.NewEvent(l.h)
	if err != nil {
		closeSocket(client)
		return nil, nil, err
	}
	defer ev.Close()

	buf := make([]byte, addrSpace*2)
	var recvd uint32

	runErr := ev.Run(l.sock, func(overlapped *windows.Overlapped) (bool, error) {
		err := windows.AcceptEx(l.sock, client, &buf[0], 0, uint32(addrSpace), uint32(addrSpace), &recvd, overlapped)
		if err == nil {
			return false, nil
		}
		if err == windows.ERROR_IO_PENDING {
			return true, nil
		}
		return false, err
	})
	if runErr != nil {
		closeSocket(client)
		return nil, nil, runErr
	}

	var localRSA, remoteRSA *windows.RawSockaddrAny
	var localLen, remoteLen int32
	windows.GetAcceptExSockaddrs(
		&buf[0], 0, uint32(addrSpace), uint32(addrSpace),
		&localRSA, &localLen, &remoteRSA, &remoteLen,
	)

	var remoteAddr *net.TCPAddr
	if remoteRSA != nil {
		if sa, err := remoteRSA.Sockaddr(); err == nil {
			remoteAddr = sockaddrToTCPAddr(sa)
		}
	}

	conn, err := wae.NewConn(l.h, client)
	if err != nil {
		closeSocket(client)
		return nil, nil, err
	}
	return &TcpStream{conn: conn, sock: client}, remoteAddr, nil
}

// Incoming repeatedly calls Accept, returning a new TcpStream for every
// inbound connection until the listener is closed (at which point Accept
// returns an error and the loop should stop).
type Incoming struct {
	listener *TcpListener
}

// Incoming returns an iterator-like helper over l's accepted connections.
func (l *TcpListener) Incoming() *Incoming {
	return &Incoming{listener: l}
}

// Next blocks for the next inbound connection.
func (i *Incoming) Next() (*TcpStream, *net.TCPAddr, error) {
	return i.listener.Accept()
}
