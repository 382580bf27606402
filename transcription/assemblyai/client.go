package assemblyai

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

// ProviderName is the registry name of the AssemblyAI backend.
const ProviderName = "assemblyai"

const (
	// DefaultSampleRate is the realtime sample rate when none is given.
	DefaultSampleRate = 16000
	// DefaultPollInterval is the delay between transcript status checks.
	DefaultPollInterval = 3 * time.Second

	// OptionDisablePartialTranscripts suppresses realtime partial events.
	OptionDisablePartialTranscripts = "disable_partial_transcripts"
)

// Config configures the AssemblyAI backend.
type Config struct {
	APIKey       string        `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string        `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	RealtimeURL  string        `json:"realtime_url,omitempty" yaml:"realtime_url" mapstructure:"realtime_url"`
	PollInterval time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval" mapstructure:"poll_interval"`
	PollTimeout  time.Duration `json:"poll_timeout,omitempty" yaml:"poll_timeout" mapstructure:"poll_timeout"`
	CloseTimeout time.Duration `json:"close_timeout,omitempty" yaml:"close_timeout" mapstructure:"close_timeout"`
}

// Client implements transcription.Client over the AssemblyAI REST and
// realtime APIs.
type Client struct {
	cfg    Config
	rest   *REST
	dialer *websocket.Dialer
	log    *logger.Logger
}

var _ transcription.Client = (*Client)(nil)

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.InvalidInput("api_key", "an AssemblyAI API key is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	rest, err := NewREST(cfg.BaseURL, cfg.APIKey, cfg.PollInterval, cfg.PollTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:    cfg,
		rest:   rest,
		dialer: websocket.DefaultDialer,
		log:    logger.Get("transcription." + ProviderName),
	}, nil
}

// Factory builds clients from a backend config map.
func Factory(cfg map[string]any) (transcription.Client, error) {
	c := Config{
		APIKey:      provider.ConfigString(cfg, "api_key", ""),
		BaseURL:     provider.ConfigString(cfg, "base_url", ""),
		RealtimeURL: provider.ConfigString(cfg, "realtime_url", ""),
	}
	if s := provider.ConfigString(cfg, "poll_interval", ""); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, apperrors.InvalidInput("poll_interval", err.Error())
		}
		c.PollInterval = d
	}
	client, err := New(c)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Name returns ProviderName.
func (c *Client) Name() string { return ProviderName }

// IsAvailable reports whether the client has credentials.
func (c *Client) IsAvailable(_ context.Context) bool { return c.cfg.APIKey != "" }

// Close releases pooled REST connections.
func (c *Client) Close(_ context.Context) error {
	c.rest.Close()
	return nil
}

// Transcribe submits the audio through the REST API and waits for the
// finished transcript.
func (c *Client) Transcribe(ctx context.Context, src audio.Source, opts transcription.Options) (*transcription.Completion, error) {
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}

	audioURL, err := c.audioURL(ctx, src, first)
	if err != nil {
		return nil, err
	}
	t, err := c.rest.Submit(ctx, TranscriptRequest{AudioURL: audioURL, LanguageCode: LanguageCode(opts.Language)})
	if err != nil {
		return nil, err
	}
	c.log.Debug("transcript queued", logger.Fields("transcript_id", t.ID, logger.FieldStatus, t.Status))

	t, err = c.rest.Wait(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return toCompletion(t), nil
}

// audioURL returns the URL AssemblyAI should fetch: remote references as
// they are, everything else after an upload.
func (c *Client) audioURL(ctx context.Context, src audio.Source, first audio.Chunk) (string, error) {
	if first.ContainsData() {
		r := audio.NewReader(ctx, src, &first)
		defer r.Close()
		return c.rest.Upload(ctx, r)
	}

	u, err := url.Parse(first.URI)
	if err != nil {
		return "", apperrors.InvalidInput("uri", err.Error())
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return first.URI, nil
	case "file", "":
		path := first.URI
		if u.Scheme != "" {
			path = filepath.FromSlash(u.Path)
		}
		f, err := os.Open(path)
		if err != nil {
			return "", apperrors.NotFound("audio file", path).WithCause(err)
		}
		defer f.Close()
		return c.rest.Upload(ctx, f)
	default:
		return "", apperrors.Unsupported(ProviderName, "audio references with scheme "+u.Scheme)
	}
}

func toCompletion(t *Transcript) *transcription.Completion {
	comp := &transcription.Completion{
		ID:    t.ID,
		Model: t.LanguageModel,
		Raw:   t,
		Properties: map[string]any{
			"language_code": t.LanguageCode,
		},
	}
	if t.Text != nil {
		comp.Content = &transcription.TranscribedContent{Text: *t.Text}
	}
	if t.AudioDuration != nil {
		comp.Properties["audio_duration"] = *t.AudioDuration
		comp.End = time.Duration(*t.AudioDuration * float64(time.Second))
	}
	if n := len(t.Words); n > 0 {
		comp.Start = time.Duration(t.Words[0].Start) * time.Millisecond
		comp.End = time.Duration(t.Words[n-1].End) * time.Millisecond
	}
	if t.Confidence != nil {
		comp.Properties["confidence"] = *t.Confidence
	}
	return comp
}

// TranscribeStream opens a realtime session and streams src into it.
func (c *Client) TranscribeStream(ctx context.Context, src audio.Source, opts transcription.Options) (provider.Iterator[transcription.Update], error) {
	if ctx.Err() != nil {
		return provider.FromSlice[transcription.Update](), nil
	}
	first, err := transcription.FirstChunk(ctx, src)
	if err != nil {
		return nil, err
	}
	if !first.ContainsData() {
		return nil, apperrors.Unsupported(ProviderName, "realtime transcription of audio references")
	}

	sess := transcription.NewSession(ProviderName, c.log).WithCloseTimeout(c.cfg.CloseTimeout)
	conn, err := Dial(ctx, RealtimeConfig{
		APIKey:                    c.cfg.APIKey,
		URL:                       c.cfg.RealtimeURL,
		SampleRate:                opts.SampleRateOr(DefaultSampleRate),
		DisablePartialTranscripts: opts.Bool(OptionDisablePartialTranscripts),
		Dialer:                    c.dialer,
	}, sessionHandler(sess))
	if err != nil {
		_ = src.Close()
		if ctx.Err() != nil {
			return provider.FromSlice[transcription.Update](), nil
		}
		return nil, err
	}

	sess.Start(ctx, conn.Terminate, func(ctx context.Context) error {
		defer src.Close()
		chunks, sent := 1, len(first.Data)
		defer func() {
			c.log.Debug("audio sent", logger.Fields(logger.FieldChunkCount, chunks, logger.FieldBytes, sent))
		}()
		if err := conn.SendAudio(first.Data); err != nil {
			return err
		}
		for {
			chunk, ok, err := src.Next(ctx)
			if err != nil {
				return err
			}
			if !ok || !chunk.ContainsData() {
				return nil
			}
			if err := conn.SendAudio(chunk.Data); err != nil {
				return err
			}
			chunks++
			sent += len(chunk.Data)
		}
	})
	return sess, nil
}

func sessionHandler(sess *transcription.Session) RealtimeHandler {
	return RealtimeHandler{
		OnSessionBegins: func(m SessionBegins) {
			sess.Open(m.SessionID, map[string]any{
				"session_id": m.SessionID,
				"expires_at": m.ExpiresAt,
			}, m)
		},
		OnPartialTranscript: func(m RealtimeTranscript) {
			sess.Emit(transcriptUpdate(transcription.KindTranscribing, m))
		},
		OnFinalTranscript: func(m RealtimeTranscript) {
			sess.Emit(transcriptUpdate(transcription.KindTranscribed, m))
		},
		OnError: func(m RealtimeError) {
			sess.Fail(transcription.Update{Text: m.Error, Raw: m})
		},
		OnClosed: func(e CloseEvent) {
			sess.Closed(map[string]any{"code": e.Code, "reason": e.Reason}, e)
		},
	}
}

func transcriptUpdate(kind transcription.UpdateKind, m RealtimeTranscript) transcription.Update {
	return transcription.Update{
		Kind:  kind,
		Start: time.Duration(m.AudioStart) * time.Millisecond,
		End:   time.Duration(m.AudioEnd) * time.Millisecond,
		Text:  m.Text,
		Raw:   m,
	}
}

var languageCodes = map[string]bool{
	"en": true, "en_au": true, "en_uk": true, "en_us": true,
	"es": true, "fr": true, "de": true, "it": true, "pt": true, "nl": true,
	"hi": true, "ja": true, "zh": true, "fi": true, "ko": true, "pl": true,
	"ru": true, "tr": true, "uk": true, "vi": true,
}

// LanguageCode maps a BCP 47 tag to an AssemblyAI language code. Empty
// stays empty so the service applies its default; unknown tags fall back
// to en_us.
func LanguageCode(tag string) string {
	if tag == "" {
		return ""
	}
	code := strings.ToLower(strings.ReplaceAll(tag, "-", "_"))
	if code == "en_gb" {
		code = "en_uk"
	}
	if languageCodes[code] {
		return code
	}
	if i := strings.IndexByte(code, '_'); i > 0 && languageCodes[code[:i]] && code[:i] != "en" {
		return code[:i]
	}
	return "en_us"
}
