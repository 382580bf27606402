package audio

import (
	"context"
	"io"
	"sync"
)

// Reader presents a Source as a sequential io.Reader.
//
// Only the remaining bytes of the current chunk are held at any time.
// A chunk without inline data ends the stream as if the source were
// exhausted. Once exhausted, Read returns io.EOF without touching the
// source again.
type Reader struct {
	ctx       context.Context
	src       Source
	first     *Chunk
	cur       []byte
	complete  bool
	closeOnce sync.Once
	closeErr  error
}

// NewReader wraps src. When first is non-nil it is returned ahead of src,
// so a chunk already pulled to decide how to submit the audio is not lost.
// ctx bounds every pull from src.
func NewReader(ctx context.Context, src Source, first *Chunk) *Reader {
	return &Reader{ctx: ctx, src: src, first: first}
}

// Read copies bytes of the current chunk into p, pulling the next chunk
// when the current one is drained.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.cur) == 0 {
		if r.complete {
			return 0, io.EOF
		}
		chunk, ok, err := r.pull()
		if err != nil {
			return 0, err
		}
		if !ok || !chunk.ContainsData() {
			r.complete = true
			r.cur = nil
			return 0, io.EOF
		}
		r.cur = chunk.Data
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close marks the reader complete and closes the source.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.complete = true
		r.cur = nil
		r.closeErr = r.src.Close()
	})
	return r.closeErr
}

func (r *Reader) pull() (Chunk, bool, error) {
	if r.first != nil {
		c := *r.first
		r.first = nil
		return c, true, nil
	}
	return r.src.Next(r.ctx)
}

// ReadAll drains src (after first, when given) into memory.
func ReadAll(ctx context.Context, src Source, first *Chunk) ([]byte, error) {
	r := NewReader(ctx, src, first)
	defer r.Close()
	return io.ReadAll(r)
}
