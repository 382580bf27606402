package openai

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

// ProviderName is the registry name of the OpenAI backend.
const ProviderName = "openai"

// AudioClient is the part of the go-openai client this backend uses.
type AudioClient interface {
	CreateTranscription(ctx context.Context, req goopenai.AudioRequest) (goopenai.AudioResponse, error)
}

// Config configures the OpenAI backend.
type Config struct {
	APIKey  string `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Model   string `json:"model,omitempty" yaml:"model" mapstructure:"model"`
}

// Client implements transcription.Client over the OpenAI audio API.
type Client struct {
	cfg   Config
	audio AudioClient
	log   *logger.Logger
}

var _ transcription.Client = (*Client)(nil)

// New creates a client with its own go-openai client.
func New(cfg Config) *Client {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return NewWithClient(cfg, goopenai.NewClientWithConfig(oc))
}

// NewWithClient creates a client over an existing AudioClient.
func NewWithClient(cfg Config, ac AudioClient) *Client {
	if cfg.Model == "" {
		cfg.Model = goopenai.Whisper1
	}
	return &Client{cfg: cfg, audio: ac, log: logger.Get("transcription." + ProviderName)}
}

// Factory builds clients from a backend config map.
func Factory(cfg map[string]any) (transcription.Client, error) {
	key := provider.ConfigString(cfg, "api_key", "")
	if key == "" {
		return nil, apperrors.InvalidInput("api_key", "an OpenAI API key is required")
	}
	return New(Config{
		APIKey:  key,
		BaseURL: provider.ConfigString(cfg, "base_url", ""),
		Model:   provider.ConfigString(cfg, "model", ""),
	}), nil
}

// Name returns ProviderName.
func (c *Client) Name() string { return ProviderName }

// IsAvailable reports whether the client is configured.
func (c *Client) IsAvailable(_ context.Context) bool {
	return c.audio != nil
}

// Close is a no-op: the HTTP client needs no release.
func (c *Client) Close(_ context.Context) error { return nil }

// Transcribe uploads the audio, or the referenced local file, and returns
// the verbose transcription.
func (c *Client) Transcribe(ctx context.Context, src audio.Source, opts transcription.Options) (*transcription.Completion, error) {
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}

	req := goopenai.AudioRequest{
		Model:    opts.ModelOr(c.cfg.Model),
		Language: opts.Language,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	}
	if first.ContainsData() {
		r := audio.NewReader(ctx, src, &first)
		defer r.Close()
		req.Reader = r
		// go-openai names the multipart file after FilePath when Reader is set.
		req.FilePath = uploadName(opts.FileName, first.MediaType)
	} else {
		path, err := localPath(first.URI)
		if err != nil {
			return nil, err
		}
		req.FilePath = path
	}

	start := time.Now()
	resp, err := c.audio.CreateTranscription(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Canceled("transcribe", err)
		}
		return nil, apperrors.ExternalServiceError(ProviderName, err)
	}
	c.log.Debug("transcription received", logger.DurationFields("transcribe", time.Since(start)))
	return toCompletion(&resp, req.Model), nil
}

// TranscribeStream runs Transcribe on the first Next and yields its result
// as one transcribed update.
func (c *Client) TranscribeStream(ctx context.Context, src audio.Source, opts transcription.Options) (provider.Iterator[transcription.Update], error) {
	if ctx.Err() != nil {
		return provider.FromSlice[transcription.Update](), nil
	}
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}
	if !first.ContainsData() {
		if _, err := localPath(first.URI); err != nil {
			return nil, err
		}
	}

	done := false
	return provider.IteratorFunc(func(nctx context.Context) (transcription.Update, bool, error) {
		if done || nctx.Err() != nil || ctx.Err() != nil {
			return transcription.Update{}, false, nil
		}
		done = true
		completion, err := c.Transcribe(ctx, audio.Prepend(first, src), opts)
		if err != nil {
			return transcription.Update{}, false, err
		}
		return transcription.UpdateFromCompletion(completion), true, nil
	}, src.Close), nil
}

func toCompletion(resp *goopenai.AudioResponse, model string) *transcription.Completion {
	id := resp.Header().Get("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}
	c := &transcription.Completion{
		ID:      id,
		Model:   model,
		Content: &transcription.TranscribedContent{Text: resp.Text},
		Raw:     resp,
		Properties: map[string]any{
			"language": resp.Language,
			"duration": resp.Duration,
		},
	}
	if n := len(resp.Segments); n > 0 {
		c.Start = seconds(resp.Segments[0].Start)
		c.End = seconds(resp.Segments[n-1].End)
	} else if resp.Duration > 0 {
		c.End = seconds(resp.Duration)
	}
	return c
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// localPath resolves a file:// URI or bare path. Remote URIs cannot be
// uploaded by reference.
func localPath(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || (len(u.Scheme) == 1 && filepath.VolumeName(ref) != "") {
		return ref, nil
	}
	if strings.EqualFold(u.Scheme, "file") {
		if u.Path == "" {
			return "", apperrors.InvalidInput("uri", "file URI without a path")
		}
		return filepath.FromSlash(u.Path), nil
	}
	return "", apperrors.Unsupported(ProviderName, "transcription of remote URIs")
}

func uploadName(fileName, mediaType string) string {
	if fileName != "" {
		return filepath.Base(fileName)
	}
	if ext := strings.TrimPrefix(mediaType, "audio/"); ext != "" && ext != mediaType {
		return "audio." + ext
	}
	return "audio.wav"
}
