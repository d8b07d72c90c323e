//go:build windows

package tcp

// ReadHalf is the read-only half of a split TcpStream.
type ReadHalf struct {
	stream *TcpStream
}

// WriteHalf is the write-only half of a split TcpStream.
type WriteHalf struct {
	stream *TcpStream
}

// Split divides s into independently usable read and write halves. Since
// ioHalf (see the root package's iohandle.go) already serializes each
// direction on its own mutex, both halves may be driven from different
// goroutines concurrently without further synchronization — unlike the
// single Arc<IoHandle> clone the draft's split.rs produces, no reference
// counting is needed here: Go's garbage collector reclaims the shared
// *TcpStream once both halves (and the original, if still held) are
// unreachable.
func (s *TcpStream) Split() (*ReadHalf, *WriteHalf) {
	return &ReadHalf{stream: s}, &WriteHalf{stream: s}
}

// Read reads into p via the underlying stream's read half.
func (r *ReadHalf) Read(p []byte) (int, error) { return r.stream.Read(p) }

// CancelRead cancels any read in flight on the underlying stream.
func (r *ReadHalf) CancelRead(wait bool) error { return r.stream.CancelRead(wait) }

// Write writes p via the underlying stream's write half.
func (w *WriteHalf) Write(p []byte) (int, error) { return w.stream.Write(p) }

// CancelWrite cancels any write in flight on the underlying stream.
func (w *WriteHalf) CancelWrite(wait bool) error { return w.stream.CancelWrite(wait) }
