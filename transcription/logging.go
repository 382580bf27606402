package transcription

import (
	"context"
	"time"

	"github.com/kbukum/speechkit/audio"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/provider"
)

// WithLogging wraps c so every call and every delivered update is logged.
func WithLogging(c Client, log *logger.Logger) Client {
	return &loggingClient{Client: c, log: log.WithBackend(c.Name())}
}

type loggingClient struct {
	Client
	log *logger.Logger
}

func (l *loggingClient) Transcribe(ctx context.Context, src audio.Source, opts Options) (*Completion, error) {
	start := time.Now()
	c, err := l.Client.Transcribe(ctx, src, opts)
	fields := logger.DurationFields("transcribe", time.Since(start))
	if err != nil {
		l.log.Error("transcribe failed", logger.MergeWithError(fields, err))
		return nil, err
	}
	fields["has_text"] = c.HasText()
	l.log.Info("transcribe ok", fields)
	return c, nil
}

func (l *loggingClient) TranscribeStream(ctx context.Context, src audio.Source, opts Options) (provider.Iterator[Update], error) {
	it, err := l.Client.TranscribeStream(ctx, src, opts)
	if err != nil {
		l.log.Error("stream failed", logger.ErrorFields("stream", err))
		return nil, err
	}
	l.log.Debug("stream started")
	return &loggingIterator{inner: it, log: l.log, start: time.Now()}, nil
}

type loggingIterator struct {
	inner provider.Iterator[Update]
	log   *logger.Logger
	start time.Time
	count int
}

func (i *loggingIterator) Next(ctx context.Context) (Update, bool, error) {
	u, ok, err := i.inner.Next(ctx)
	switch {
	case err != nil:
		i.log.Error("stream ended with error", logger.MergeWithError(logger.DurationFields("stream", time.Since(i.start)), err))
	case !ok:
		fields := logger.DurationFields("stream", time.Since(i.start))
		fields["updates"] = i.count
		i.log.Info("stream ended", fields)
	default:
		i.count++
		i.log.Debug("update", logger.Fields(logger.FieldUpdateKind, u.Kind.String(), logger.FieldSessionID, u.ID))
	}
	return u, ok, err
}

func (i *loggingIterator) Close() error { return i.inner.Close() }
