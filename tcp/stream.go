//go:build windows

package tcp

import (
	"net"

	"golang.org/x/sys/windows"

	"github.com/iocprt/wae"
	"github.com/iocprt/wae/resolve"
)

// TcpStream is a connected TCP socket. Construct one with Connect, or
// receive one from TcpListener.Accept.
type TcpStream struct {
	conn *wae.Conn
	sock windows.Handle
}

// Connect resolves address and attempts a connection to each resolved
// address in turn, returning the first that succeeds. If every attempt
// fails, Connect returns the last attempt's error (matching the draft's
// TcpStream::connect, which only reports "address couldn't be resolved" when
// resolution itself produced zero candidates).
func Connect(h *wae.Handle, address string) (*TcpStream, error) {
	addrs, err := resolve.ResolveHostPort(h, address)
	if err != nil {
		return nil, err
	}

	sock, err := newSocket()
	if err != nil {
		return nil, err
	}
	if err := bindWildcard(sock); err != nil {
		closeSocket(sock)
		return nil, err
	}

	ev, err := wae.NewEvent(h)
	if err != nil {
		closeSocket(sock)
		return nil, err
	}
	defer ev.Close()

	var lastErr error
	tried := 0
	for _, addr := range addrs {
		sa, err := tcpAddrToSockaddr(addr)
		if err != nil {
			lastErr = err
			continue
		}

		tried++
		lastErr = ev.Run(sock, func(overlapped *windows.Overlapped) (bool, error) {
			err := windows.ConnectEx(sock, sa, nil, 0, nil, overlapped)
			switch err {
			case nil:
				return false, nil
			case windows.ERROR_IO_PENDING:
				return true, nil
			default:
				return false, err
			}
		})
		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		closeSocket(sock)
		if tried > 0 {
			return nil, lastErr
		}
		return nil, &net.AddrError{Err: "the provided address couldn't be resolved", Addr: address}
	}

	conn, err := wae.NewConn(h, sock)
	if err != nil {
		closeSocket(sock)
		return nil, err
	}
	return &TcpStream{conn: conn, sock: sock}, nil
}

func (s *TcpStream) socketAddr(peer bool) (*net.TCPAddr, error) {
	var sa windows.Sockaddr
	var err error
	if peer {
		sa, err = windows.Getpeername(s.sock)
	} else {
		sa, err = windows.Getsockname(s.sock)
	}
	if err != nil {
		return nil, err
	}
	if addr := sockaddrToTCPAddr(sa); addr != nil {
		return addr, nil
	}
	return nil, &net.AddrError{Err: "unsupported address family"}
}

// LocalAddr returns the stream's local address.
func (s *TcpStream) LocalAddr() (*net.TCPAddr, error) { return s.socketAddr(false) }

// RemoteAddr returns the stream's peer address.
func (s *TcpStream) RemoteAddr() (*net.TCPAddr, error) { return s.socketAddr(true) }

// Read reads into p, blocking the calling goroutine until data arrives, the
// peer closes the connection, or the read is cancelled.
func (s *TcpStream) Read(p []byte) (int, error) {
	return s.conn.Read(p, func(buf []byte, overlapped *windows.Overlapped) (bool, uint32, error) {
		wsabuf := windows.WSABuf{Len: uint32(len(buf)), Buf: &buf[0]}
		var flags uint32
		err := windows.WSARecv(s.sock, &wsabuf, 1, nil, &flags, overlapped, nil)
		if err == nil {
			var recvd, f uint32
			if err := windows.WSAGetOverlappedResult(s.sock, overlapped, &recvd, false, &f); err != nil {
				return false, 0, err
			}
			return false, recvd, nil
		}
		if err == windows.ERROR_IO_PENDING {
			return true, 0, nil
		}
		return false, 0, err
	})
}

// Write writes p, blocking the calling goroutine until the write completes
// or is cancelled.
func (s *TcpStream) Write(p []byte) (int, error) {
	return s.conn.Write(p, func(buf []byte, overlapped *windows.Overlapped) (bool, uint32, error) {
		wsabuf := windows.WSABuf{Len: uint32(len(buf)), Buf: &buf[0]}
		err := windows.WSASend(s.sock, &wsabuf, 1, nil, 0, overlapped, nil)
		if err == nil {
			var sent, flags uint32
			if err := windows.WSAGetOverlappedResult(s.sock, overlapped, &sent, false, &flags); err != nil {
				return false, 0, err
			}
			return false, sent, nil
		}
		if err == windows.ERROR_IO_PENDING {
			return true, 0, nil
		}
		return false, 0, err
	})
}

// CancelRead cancels the in-flight read, if any. wait selects whether it
// blocks until the read half has returned to idle.
func (s *TcpStream) CancelRead(wait bool) error {
	return s.conn.CancelRead(s.sock, wait)
}

// CancelWrite cancels the in-flight write, if any.
func (s *TcpStream) CancelWrite(wait bool) error {
	return s.conn.CancelWrite(s.sock, wait)
}

// Close releases the stream's socket and its completion-port registration.
// The caller should cancel-and-wait both directions first if a read or
// write might still be in flight.
func (s *TcpStream) Close() error {
	s.conn.Close()
	closeSocket(s.sock)
	return nil
}
