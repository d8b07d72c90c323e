//go:build windows

package tcp

import (
	"sync"
	"testing"
	"time"

	"github.com/iocprt/wae"
)

func newTestHandle(t *testing.T) *wae.Handle {
	t.Helper()
	tp, err := wae.NewBuilder().ThreadMinimum(2).ThreadMaximum(4).Build()
	if err != nil {
		t.Fatalf("failed to build threadpool: %v", err)
	}
	t.Cleanup(func() { tp.Close(true) })
	return tp.Handle()
}

func TestTcp_EchoOverLoopback(t *testing.T) {
	h := newTestHandle(t)

	ln, err := Bind(h, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer ln.Close()

	addr := ln.LocalAddr().String()

	var wg sync.WaitGroup
	wg.Add(1)
	serverErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		conn, _, err := ln.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()

		buf := make([]byte, 5)
		n, err := conn.Read(buf)
		if err != nil {
			serverErr <- err
			return
		}
		if _, err := conn.Write(buf[:n]); err != nil {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	client, err := Connect(h, addr)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	reply := make([]byte, 5)
	n, err := client.Read(reply)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(reply[:n]) != "hello" {
		t.Fatalf("expected echoed %q, got %q", "hello", string(reply[:n]))
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the server goroutine")
	}
	if err := <-serverErr; err != nil {
		t.Fatalf("server side failed: %v", err)
	}
}

func TestTcp_SplitAllowsConcurrentReadWrite(t *testing.T) {
	h := newTestHandle(t)

	ln, err := Bind(h, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer ln.Close()

	addr := ln.LocalAddr().String()

	acceptDone := make(chan *TcpStream, 1)
	go func() {
		conn, _, err := ln.Accept()
		if err != nil {
			t.Errorf("Accept failed: %v", err)
			acceptDone <- nil
			return
		}
		acceptDone <- conn
	}()

	client, err := Connect(h, addr)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	server := <-acceptDone
	if server == nil {
		t.Fatal("server side accept failed")
	}
	defer server.Close()

	clientRead, clientWrite := client.Split()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := clientWrite.Write([]byte("ping!")); err != nil {
			t.Errorf("Write failed: %v", err)
		}
	}()

	serverBuf := make([]byte, 5)
	var serverN int
	var serverErr error
	go func() {
		defer wg.Done()
		serverN, serverErr = server.Read(serverBuf)
	}()
	wg.Wait()

	if serverErr != nil {
		t.Fatalf("server read failed: %v", serverErr)
	}
	if string(serverBuf[:serverN]) != "ping!" {
		t.Fatalf("expected %q, got %q", "ping!", string(serverBuf[:serverN]))
	}

	if _, err := server.Write([]byte("pong!")); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
	reply := make([]byte, 5)
	n, err := clientRead.Read(reply)
	if err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	if string(reply[:n]) != "pong!" {
		t.Fatalf("expected %q, got %q", "pong!", string(reply[:n]))
	}
}

func TestTcp_CancelReadUnblocksOutstandingRead(t *testing.T) {
	h := newTestHandle(t)

	ln, err := Bind(h, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer ln.Close()

	addr := ln.LocalAddr().String()

	acceptDone := make(chan *TcpStream, 1)
	go func() {
		conn, _, _ := ln.Accept()
		acceptDone <- conn
	}()

	client, err := Connect(h, addr)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	server := <-acceptDone
	if server != nil {
		defer server.Close()
	}

	readDone := make(chan error, 1)
	go func() {
		buf := make([]byte, 16)
		_, err := client.Read(buf)
		readDone <- err
	}()

	// give the read a moment to actually become outstanding before cancelling it
	time.Sleep(50 * time.Millisecond)

	if err := client.CancelRead(true); err != nil {
		t.Fatalf("CancelRead failed: %v", err)
	}

	select {
	case err := <-readDone:
		if err == nil {
			t.Fatal("expected the cancelled read to return an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the cancelled read to unblock")
	}
}
