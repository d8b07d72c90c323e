//go:build windows

package wae

// sizeOfCacheLine is the size of a CPU cache line, used to pad ioHandle's
// read and write halves apart (see iohandle.go) so that concurrent access
// to one direction's mutex does not false-share a cache line with the
// other's. 128 bytes covers both x86-64 (64 bytes) and Apple Silicon/other
// ARM64 (128 bytes).
const sizeOfCacheLine = 128
