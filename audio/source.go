package audio

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/kbukum/speechkit/provider"
)

// Source is a finite, forward-only sequence of chunks.
//
// Sources in this package start a new pass once the previous one ended:
// after Next has reported exhaustion (or after Close) the following Next
// begins again from the start, which only reproduces the same chunks when
// the underlying data can be replayed.
type Source = provider.Iterator[Chunk]

// StreamSource reads DefaultBlockSize blocks from an io.Reader. Each block
// becomes one inline chunk. A reader that implements io.Seeker is rewound
// at the start of every pass.
type StreamSource struct {
	r         io.Reader
	owned     io.Closer
	mediaType string
	blockSize int
	started   bool
}

// NewStreamSource wraps r. The source does not close r.
func NewStreamSource(r io.Reader, mediaType string) *StreamSource {
	return &StreamSource{r: r, mediaType: mediaType, blockSize: DefaultBlockSize}
}

// OpenFile opens path as a StreamSource tagged with the media type derived
// from its extension. Close releases the file.
func OpenFile(path string) (*StreamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := NewStreamSource(f, MediaTypeFromFileName(path))
	s.owned = f
	return s, nil
}

// WithBlockSize overrides the read size. Non-positive values are ignored.
func (s *StreamSource) WithBlockSize(n int) *StreamSource {
	if n > 0 {
		s.blockSize = n
	}
	return s
}

// Next reads the next block. A short final block is returned as is.
func (s *StreamSource) Next(ctx context.Context) (Chunk, bool, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, false, err
	}
	if !s.started {
		if err := s.rewind(); err != nil {
			return Chunk{}, false, err
		}
		s.started = true
	}

	buf := make([]byte, s.blockSize)
	n, err := io.ReadFull(s.r, buf)
	if n > 0 {
		return NewDataChunk(buf[:n], s.mediaType), true, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		s.started = false
		return Chunk{}, false, nil
	}
	return Chunk{}, false, err
}

// Close ends the current pass and closes the file opened by OpenFile.
func (s *StreamSource) Close() error {
	s.started = false
	if s.owned != nil {
		owned := s.owned
		s.owned = nil
		return owned.Close()
	}
	return nil
}

func (s *StreamSource) rewind() error {
	seeker, ok := s.r.(io.Seeker)
	if !ok {
		return nil
	}
	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil || pos == 0 {
		return nil
	}
	_, err = seeker.Seek(0, io.SeekStart)
	return err
}

// SliceSource replays chunks held in memory.
type SliceSource struct {
	chunks []Chunk
	pos    int
}

// FromChunks returns a Source over chunks.
func FromChunks(chunks ...Chunk) *SliceSource {
	return &SliceSource{chunks: chunks}
}

// FromBytes returns a Source holding data as a single inline chunk.
func FromBytes(data []byte, mediaType string) *SliceSource {
	return FromChunks(NewDataChunk(data, mediaType))
}

// Next returns the next chunk.
func (s *SliceSource) Next(ctx context.Context) (Chunk, bool, error) {
	if err := ctx.Err(); err != nil {
		return Chunk{}, false, err
	}
	if s.pos >= len(s.chunks) {
		s.pos = 0
		return Chunk{}, false, nil
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, true, nil
}

// Close resets the source to its first chunk.
func (s *SliceSource) Close() error {
	s.pos = 0
	return nil
}

// NewReferenceSource returns a Source yielding one chunk that refers to uri.
// The media type is derived from the URI's file name.
func NewReferenceSource(uri string) *SliceSource {
	return FromChunks(NewURIChunk(uri, MediaTypeFromFileName(uri)))
}

type prependSource struct {
	first   *Chunk
	pending bool
	src     Source
}

// Prepend returns a Source yielding first and then the rest of src. Use it
// to hand on a source whose first chunk was already pulled.
func Prepend(first Chunk, src Source) Source {
	return &prependSource{first: &first, pending: true, src: src}
}

func (p *prependSource) Next(ctx context.Context) (Chunk, bool, error) {
	if p.pending {
		if err := ctx.Err(); err != nil {
			return Chunk{}, false, err
		}
		p.pending = false
		return *p.first, true, nil
	}
	return p.src.Next(ctx)
}

func (p *prependSource) Close() error {
	return p.src.Close()
}
