// Package chunkio adapts one open file to the pull-based, arbitrary-offset
// read interface the fragment parser consumes. The parser requests byte
// ranges in whatever order it likes; the adapter serves each request with a
// single bounded read and tracks when the stream looks complete.
package chunkio

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrClosed is returned by Read after the adapter has been closed.
var ErrClosed = errors.New("chunkio: reader is closed")

// RangeReader is the pull surface handed to a fragment parser.
type RangeReader interface {
	// Read returns up to size bytes starting at offset. A short or empty
	// result is a valid end-of-data signal, not an error.
	Read(offset int64, size int) ([]byte, error)
	// Size reports the total length of the underlying file.
	Size() int64
	// MarkFinished lets a consumer signal completion explicitly instead of
	// relying on the access-pattern heuristic.
	MarkFinished()
}

// Reader wraps one open file handle for exactly one conversion attempt.
// It is single-use, single-goroutine and non-reentrant: it must not be
// shared across conversions or invoked concurrently.
//
// Completion is inferred the first time a requested offset is strictly
// lower than the immediately preceding one. Parsers observed so far make a
// final restart pass from a lower offset once they have everything they
// need, so the first backwards seek marks the stream finished. Consumers
// with a different access pattern should call MarkFinished themselves.
type Reader struct {
	f          *os.File
	size       int64
	lastOffset int64
	finished   bool
	closed     bool
}

// Open stats and opens the file at path and wraps it in a Reader.
func Open(path string) (*Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewReader(f, info.Size()), nil
}

// NewReader wraps an already-open handle. The Reader takes ownership of f.
func NewReader(f *os.File, size int64) *Reader {
	return &Reader{f: f, size: size, lastOffset: -1}
}

// Read serves one range request with a single ReadAt against the handle.
// Short and zero-length reads are returned as-is; interpreting them as
// end-of-data is the caller's job.
func (r *Reader) Read(offset int64, size int) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	if offset < r.lastOffset {
		r.finished = true
	}
	r.lastOffset = offset

	buf := make([]byte, size)
	n, err := r.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %d bytes at %d: %w", size, offset, err)
	}
	return buf[:n], nil
}

// Size returns the total file length recorded at open time.
func (r *Reader) Size() int64 { return r.size }

// MarkFinished sets the finished flag explicitly.
func (r *Reader) MarkFinished() { r.finished = true }

// Finished reports whether the stream is considered complete, either by the
// access-pattern heuristic or an explicit MarkFinished. Once true it never
// reverts.
func (r *Reader) Finished() bool { return r.finished }

// Close releases the underlying handle. Safe to call once; subsequent Reads
// fail with ErrClosed. The first close error is returned to the caller.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.f.Close()
}
