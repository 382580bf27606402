package transcription

import (
	"context"
	"io"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/provider"
)

// Client is a speech-to-text backend. Each client owns its backend handle
// until Close is called.
type Client interface {
	provider.Provider

	// Transcribe submits all of src and waits for one result.
	Transcribe(ctx context.Context, src audio.Source, opts Options) (*Completion, error)

	// TranscribeStream submits src incrementally and returns the updates in
	// the order the backend produced them. Canceling ctx stops the session
	// gracefully; Next then reports exhaustion rather than an error.
	TranscribeStream(ctx context.Context, src audio.Source, opts Options) (provider.Iterator[Update], error)

	// Close releases the backend handle.
	Close(ctx context.Context) error
}

// TranscribeChunk transcribes a single in-memory chunk.
func TranscribeChunk(ctx context.Context, c Client, chunk audio.Chunk, opts Options) (*Completion, error) {
	return c.Transcribe(ctx, audio.FromChunks(chunk), opts)
}

// TranscribeReader transcribes everything readable from r. Chunks are
// tagged with the media type derived from opts.FileName.
func TranscribeReader(ctx context.Context, c Client, r io.Reader, opts Options) (*Completion, error) {
	return c.Transcribe(ctx, readerSource(r, opts), opts)
}

// TranscribeStreamChunk streams a single in-memory chunk.
func TranscribeStreamChunk(ctx context.Context, c Client, chunk audio.Chunk, opts Options) (provider.Iterator[Update], error) {
	return c.TranscribeStream(ctx, audio.FromChunks(chunk), opts)
}

// TranscribeStreamReader streams everything readable from r.
func TranscribeStreamReader(ctx context.Context, c Client, r io.Reader, opts Options) (provider.Iterator[Update], error) {
	return c.TranscribeStream(ctx, readerSource(r, opts), opts)
}

func readerSource(r io.Reader, opts Options) audio.Source {
	return audio.NewStreamSource(r, audio.MediaTypeFromFileName(opts.FileName))
}

// FirstChunk pulls the first chunk of src. An empty source is an
// invalid-input error.
func FirstChunk(ctx context.Context, src audio.Source) (audio.Chunk, error) {
	if src == nil {
		return audio.Chunk{}, apperrors.NoAudio()
	}
	first, ok, err := src.Next(ctx)
	if err != nil {
		return audio.Chunk{}, err
	}
	if !ok {
		return audio.Chunk{}, apperrors.NoAudio()
	}
	return first, nil
}
