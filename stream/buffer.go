// Package stream adapts a forward-only byte stream into a random-access byte
// range provider. Consumed bytes are spilled to an anonymous temp file so the
// buffer can replay any already-pulled range without re-contacting the source
// and without holding a full download in memory.
package stream

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultChunkSize is the pull size used when the caller passes a
// non-positive chunk size. The chunk size is internal tuning only; it never
// changes the bytes a read returns.
const DefaultChunkSize = 64 * 1024

// Buffer wraps a sequential source and serves offset-based reads out of a
// spill store.
//
// Invariant: bytes at positions below the cursor are durably retrievable from
// the spill store; bytes at or past the cursor are unknown until more chunks
// are pulled. Once the source reports exhaustion the cursor is final.
//
// A Buffer is single-owner in spirit (one per open file handle) but its
// methods are serialized internally because the underlying stream must be
// pulled strictly in order.
type Buffer struct {
	mu        sync.Mutex
	src       io.ReadCloser
	spill     *os.File
	chunk     []byte
	cursor    int64
	exhausted bool
	closed    bool
}

// New creates a Buffer over src. The Buffer takes ownership of src and closes
// it on Close.
func New(src io.ReadCloser, chunkSize int) (*Buffer, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	spill, err := os.CreateTemp("", "coursefs-spill-*")
	if err != nil {
		return nil, fmt.Errorf("create spill store: %w", err)
	}
	// Unlink immediately so the store is reclaimed even on crash; the open
	// descriptor keeps it usable.
	os.Remove(spill.Name())

	return &Buffer{
		src:   src,
		spill: spill,
		chunk: make([]byte, chunkSize),
	}, nil
}

// ReadAt reads up to len(p) bytes at offset off, pulling from the source only
// if the requested range extends past the cursor. A short count with io.EOF
// means the source ended before the range was filled; it is not a failure.
// Reads entirely below the cursor never touch the source.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("stream: negative offset")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, os.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	if err := b.pullTo(off + int64(len(p))); err != nil {
		return 0, err
	}

	avail := b.cursor - off
	if avail <= 0 {
		// Offset at or past the final cursor; pullTo only stops short on
		// exhaustion.
		return 0, io.EOF
	}

	n := len(p)
	if int64(n) > avail {
		n = int(avail)
	}
	if _, err := b.spill.ReadAt(p[:n], off); err != nil {
		return 0, fmt.Errorf("read spill store: %w", err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// pullTo advances the cursor to at least pos by appending chunks from the
// source to the spill store, stopping early on exhaustion.
func (b *Buffer) pullTo(pos int64) error {
	for b.cursor < pos && !b.exhausted {
		n, err := b.src.Read(b.chunk)
		if n > 0 {
			if _, werr := b.spill.WriteAt(b.chunk[:n], b.cursor); werr != nil {
				return fmt.Errorf("write spill store: %w", werr)
			}
			b.cursor += int64(n)
		}
		if err == io.EOF {
			b.exhausted = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("pull chunk: %w", err)
		}
	}
	return nil
}

// Consumed returns how many bytes have been pulled from the source so far.
func (b *Buffer) Consumed() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Exhausted reports whether the source has delivered its final byte.
func (b *Buffer) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exhausted
}

// Close releases the spill store and the underlying source stream. Safe to
// call more than once.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	err := b.src.Close()
	if serr := b.spill.Close(); err == nil {
		err = serr
	}
	return err
}
