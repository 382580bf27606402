package whisper

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

const (
	// ProviderName is the registry name of the Whisper backend.
	ProviderName = "whisper"

	defaultURL      = "http://localhost:8387"
	defaultModel    = "base"
	defaultLanguage = "auto"
	defaultTimeout  = 120 * time.Second
)

// Config configures the Whisper backend.
type Config struct {
	URL      string        `json:"url" yaml:"url" mapstructure:"url"`
	Model    string        `json:"model" yaml:"model" mapstructure:"model"`
	Language string        `json:"language,omitempty" yaml:"language" mapstructure:"language"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Client implements transcription.Client over a Processor.
type Client struct {
	cfg       Config
	processor Processor
	log       *logger.Logger
}

var _ transcription.Client = (*Client)(nil)

// New creates a client backed by the HTTP sidecar described by cfg.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return NewWithProcessor(cfg, NewSidecarProcessor(cfg.URL, cfg.Timeout))
}

// NewWithProcessor creates a client over any Processor.
func NewWithProcessor(cfg Config, p Processor) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:       cfg,
		processor: p,
		log:       logger.Get("transcription." + ProviderName),
	}
}

// Factory builds clients from a backend config map.
func Factory(cfg map[string]any) (transcription.Client, error) {
	wc := Config{
		URL:      provider.ConfigString(cfg, "url", ""),
		Model:    provider.ConfigString(cfg, "model", ""),
		Language: provider.ConfigString(cfg, "language", ""),
	}
	if v, ok := cfg["timeout"].(time.Duration); ok {
		wc.Timeout = v
	} else if s := provider.ConfigString(cfg, "timeout", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, apperrors.InvalidInput("timeout", err.Error())
		}
		wc.Timeout = d
	}
	return New(wc), nil
}

// Name returns ProviderName.
func (c *Client) Name() string { return ProviderName }

// IsAvailable asks the processor.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c.processor.IsAvailable(ctx)
}

// Close releases the processor when it holds resources.
func (c *Client) Close(_ context.Context) error {
	if closer, ok := c.processor.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) processOptions(opts transcription.Options) ProcessOptions {
	return ProcessOptions{
		Model:    opts.ModelOr(c.cfg.Model),
		Language: opts.LanguageOr(c.cfg.Language),
		FileName: opts.FileName,
	}
}

// firstData pulls the first chunk, which must carry inline audio.
func firstData(ctx context.Context, src audio.Source) (audio.Chunk, error) {
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return audio.Chunk{}, err
	}
	if !first.ContainsData() {
		return audio.Chunk{}, apperrors.Unsupported(ProviderName, "transcription by reference")
	}
	return first, nil
}

// process starts the processor on src bridged to a byte stream, with
// first re-injected ahead of it.
func (c *Client) process(ctx context.Context, src audio.Source, first audio.Chunk, opts transcription.Options) (provider.Iterator[Segment], error) {
	po := c.processOptions(opts)
	if po.FileName == "" && first.MediaType != "" {
		po.FileName = "audio." + strings.TrimPrefix(first.MediaType, "audio/")
	}
	r := audio.NewReader(ctx, src, &first)
	segments, err := c.processor.Process(ctx, r, po)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return provider.IteratorFunc(segments.Next, func() error {
		err := segments.Close()
		_ = r.Close()
		return err
	}), nil
}

// Transcribe runs the model over the whole source. The text is the
// concatenation of all segments; start and end come from the first and
// last segment.
func (c *Client) Transcribe(ctx context.Context, src audio.Source, opts transcription.Options) (*transcription.Completion, error) {
	first, err := firstData(ctx, src)
	if err != nil {
		return nil, err
	}
	it, err := c.process(ctx, src, first, opts)
	if err != nil {
		return nil, err
	}
	segments, err := provider.Collect(ctx, it)
	if err != nil {
		return nil, err
	}

	completion := &transcription.Completion{
		ID:    uuid.NewString(),
		Model: opts.ModelOr(c.cfg.Model),
		Raw:   segments,
	}
	if len(segments) == 0 {
		return completion, nil
	}
	var text strings.Builder
	for _, s := range segments {
		text.WriteString(s.Text)
	}
	completion.Content = &transcription.TranscribedContent{Text: text.String()}
	completion.Start = segments[0].Start
	completion.End = segments[len(segments)-1].End
	return completion, nil
}

// TranscribeStream yields one transcribing update per segment as soon as
// the processor produces it.
func (c *Client) TranscribeStream(ctx context.Context, src audio.Source, opts transcription.Options) (provider.Iterator[transcription.Update], error) {
	if err := ctx.Err(); err != nil {
		return provider.FromSlice[transcription.Update](), nil
	}
	first, err := firstData(ctx, src)
	if err != nil {
		return nil, err
	}

	sess := transcription.NewSession(ProviderName, c.log)
	sess.Start(ctx, nil, func(ctx context.Context) error {
		sess.Open(uuid.NewString(), nil, nil)
		segments, err := c.process(ctx, src, first, opts)
		if err != nil {
			return err
		}
		it := provider.MapIterator(segments, segmentUpdate)
		defer it.Close()
		for {
			u, ok, err := it.Next(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			sess.Emit(u)
		}
	})
	return sess, nil
}

func segmentUpdate(seg Segment) (transcription.Update, error) {
	return transcription.Update{
		Kind:  transcription.KindTranscribing,
		Start: seg.Start,
		End:   seg.End,
		Text:  seg.Text,
		Raw:   seg,
	}, nil
}
