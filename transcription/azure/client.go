package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

// ProviderName is the registry name of the Azure Speech backend.
const ProviderName = "azure"

const (
	// DefaultLanguage is the recognition language when none is given.
	DefaultLanguage = "en-US"
	// DefaultSampleRate is the sample rate of pushed PCM audio.
	DefaultSampleRate = 16000

	noMatchText = "Speech could not be recognized."
)

// Config configures the Azure Speech backend.
type Config struct {
	SubscriptionKey string        `json:"subscription_key" yaml:"subscription_key" mapstructure:"subscription_key"`
	Region          string        `json:"region" yaml:"region" mapstructure:"region"`
	Endpoint        string        `json:"endpoint,omitempty" yaml:"endpoint" mapstructure:"endpoint"`
	Language        string        `json:"language,omitempty" yaml:"language" mapstructure:"language"`
	SampleRate      int           `json:"sample_rate,omitempty" yaml:"sample_rate" mapstructure:"sample_rate"`
	CloseTimeout    time.Duration `json:"close_timeout,omitempty" yaml:"close_timeout" mapstructure:"close_timeout"`
}

// Client implements transcription.Client over a Recognizer.
type Client struct {
	cfg        Config
	recognizer Recognizer
	log        *logger.Logger
}

var _ transcription.Client = (*Client)(nil)

// New creates a client backed by the REST recognizer.
func New(cfg Config) (*Client, error) {
	if cfg.SubscriptionKey == "" {
		return nil, apperrors.InvalidInput("subscription_key", "an Azure Speech subscription key is required")
	}
	rec, err := NewRESTRecognizer(cfg.SubscriptionKey, cfg.Region, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return NewWithRecognizer(cfg, rec), nil
}

// NewWithRecognizer creates a client over an existing Recognizer.
func NewWithRecognizer(cfg Config, rec Recognizer) *Client {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	return &Client{cfg: cfg, recognizer: rec, log: logger.Get("transcription." + ProviderName)}
}

// Factory builds clients from a backend config map.
func Factory(cfg map[string]any) (transcription.Client, error) {
	c, err := New(Config{
		SubscriptionKey: provider.ConfigString(cfg, "subscription_key", ""),
		Region:          provider.ConfigString(cfg, "region", ""),
		Endpoint:        provider.ConfigString(cfg, "endpoint", ""),
		Language:        provider.ConfigString(cfg, "language", ""),
		SampleRate:      provider.ConfigInt(cfg, "sample_rate", 0),
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Name returns ProviderName.
func (c *Client) Name() string { return ProviderName }

// IsAvailable reports whether a recognizer is configured.
func (c *Client) IsAvailable(_ context.Context) bool { return c.recognizer != nil }

// Close releases the recognizer when it holds resources.
func (c *Client) Close(_ context.Context) error {
	if closer, ok := c.recognizer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) recognitionConfig(opts transcription.Options) RecognitionConfig {
	return RecognitionConfig{
		Language:   opts.LanguageOr(c.cfg.Language),
		SampleRate: opts.SampleRateOr(c.cfg.SampleRate),
	}
}

// Transcribe pushes the audio while RecognizeOnce reads it.
func (c *Client) Transcribe(ctx context.Context, src audio.Source, opts transcription.Options) (*transcription.Completion, error) {
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}
	if !first.ContainsData() {
		return nil, errReference()
	}

	stream := NewPushStream()
	g, gctx := errgroup.WithContext(ctx)
	var pushErr, recErr error
	g.Go(func() error {
		pushErr = pushAudio(gctx, stream, first, src)
		_ = stream.CloseWithError(pushErr)
		return pushErr
	})

	var res *Result
	g.Go(func() error {
		res, recErr = c.recognizer.RecognizeOnce(gctx, stream, c.recognitionConfig(opts))
		return recErr
	})
	_ = g.Wait()

	// A push failure caused by the recognizer giving up is not the cause.
	err = pushErr
	if err == nil || (recErr != nil && errors.Is(err, context.Canceled)) {
		err = recErr
	}
	if err != nil {
		if apperrors.IsUnsupported(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, apperrors.Canceled("transcribe", err)
		}
		if _, ok := apperrors.AsAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.ExternalServiceError(ProviderName, err)
	}

	completion := &transcription.Completion{
		ID:    res.ResultID,
		Start: 0,
		End:   ticks(res.Duration),
		Raw:   res,
		Properties: map[string]any{
			"reason": res.Reason.String(),
		},
	}
	// A NoMatch result has no content.
	if res.Reason != ReasonNoMatch {
		completion.Content = &transcription.TranscribedContent{Text: res.Text}
	}
	return completion, nil
}

// pushAudio writes first and the rest of src into stream, then signals the
// end with a zero-length write. It closes src.
func pushAudio(ctx context.Context, stream *PushStream, first audio.Chunk, src audio.Source) error {
	defer src.Close()
	if len(first.Data) > 0 {
		if _, err := stream.Write(first.Data); err != nil {
			return err
		}
	}
	for {
		chunk, ok, err := src.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if !chunk.ContainsData() {
			return errReference()
		}
		if len(chunk.Data) == 0 {
			continue
		}
		if _, err := stream.Write(chunk.Data); err != nil {
			return err
		}
	}
	_, err := stream.Write(nil)
	return err
}

// TranscribeStream runs continuous recognition while the audio is pushed.
func (c *Client) TranscribeStream(ctx context.Context, src audio.Source, opts transcription.Options) (provider.Iterator[transcription.Update], error) {
	if ctx.Err() != nil {
		return provider.FromSlice[transcription.Update](), nil
	}
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}
	if !first.ContainsData() {
		return nil, errReference()
	}

	sess := transcription.NewSession(ProviderName, c.log).WithCloseTimeout(c.cfg.CloseTimeout)
	stream := NewPushStream()
	rec, err := c.recognizer.StartContinuousRecognition(ctx, stream, c.recognitionConfig(opts), sessionEvents(sess))
	if err != nil {
		_ = src.Close()
		return nil, apperrors.ExternalServiceError(ProviderName, err)
	}

	sess.Start(ctx, rec.Stop, func(ctx context.Context) error {
		if err := pushAudio(ctx, stream, first, src); err != nil {
			return err
		}
		// The recognizer keeps producing results after the last write.
		select {
		case <-rec.Done():
		case <-ctx.Done():
		}
		return nil
	})
	return sess, nil
}

func sessionEvents(sess *transcription.Session) Events {
	return Events{
		SessionStarted: func(e SessionEvent) {
			sess.Open(e.SessionID, map[string]any{"session_id": e.SessionID}, e)
		},
		Recognizing: func(r Result) {
			sess.Emit(resultUpdate(transcription.KindTranscribing, r.Text, r))
		},
		Recognized: func(r Result) {
			switch r.Reason {
			case ReasonRecognizedSpeech:
				sess.Emit(resultUpdate(transcription.KindTranscribed, r.Text, r))
			case ReasonNoMatch:
				sess.Emit(resultUpdate(transcription.KindNoMatch, noMatchText, r))
			}
		},
		Canceled: func(e CancellationEvent) {
			if e.Reason == CancellationEndOfStream {
				return
			}
			at := ticks(e.Offset)
			sess.Fail(transcription.Update{
				Start: at,
				End:   at,
				Text:  fmt.Sprintf("Reason=%s, ErrorCode=%s, ErrorDetails=%s", e.Reason, e.ErrorCode, e.ErrorDetails),
				Properties: map[string]any{
					"reason":        e.Reason.String(),
					"error_code":    e.ErrorCode,
					"error_details": e.ErrorDetails,
				},
				Raw: e,
			})
		},
		SessionStopped: func(e SessionEvent) {
			sess.Closed(map[string]any{"session_id": e.SessionID}, e)
		},
	}
}

func resultUpdate(kind transcription.UpdateKind, text string, r Result) transcription.Update {
	return transcription.Update{
		Kind:  kind,
		Start: r.Start(),
		End:   r.End(),
		Text:  text,
		Raw:   r,
	}
}

func errReference() error {
	return apperrors.Unsupported(ProviderName, "transcription of audio references")
}
