package assemblyai

import (
	"context"
	"io"
	"time"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/httpclient"
	"github.com/kbukum/speechkit/resilience"
)

// DefaultBaseURL is the AssemblyAI REST endpoint.
const DefaultBaseURL = "https://api.assemblyai.com/v2"

// Transcript statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Transcript is the REST transcript resource.
type Transcript struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Text          *string  `json:"text"`
	LanguageModel string   `json:"language_model"`
	LanguageCode  string   `json:"language_code"`
	AudioURL      string   `json:"audio_url"`
	AudioDuration *float64 `json:"audio_duration"`
	Confidence    *float64 `json:"confidence"`
	Error         string   `json:"error"`
	Words         []Word   `json:"words"`
}

// Word is a timed word of a transcript. Offsets are in milliseconds.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
}

// TranscriptRequest submits audio for transcription.
type TranscriptRequest struct {
	AudioURL     string `json:"audio_url"`
	LanguageCode string `json:"language_code,omitempty"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// REST wraps the upload and transcript endpoints.
type REST struct {
	http         *httpclient.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewREST creates a REST client. pollTimeout zero leaves polling bounded
// only by the caller's context.
func NewREST(baseURL, apiKey string, pollInterval, pollTimeout time.Duration) (*REST, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc, err := httpclient.New(httpclient.Config{
		BaseURL: baseURL,
		Timeout: -1,
		Auth:    httpclient.APIKeyAuthHeader(apiKey, "Authorization"),
		Retry:   httpclient.DefaultRetryConfig(),
	})
	if err != nil {
		return nil, err
	}
	return &REST{http: hc, pollInterval: pollInterval, pollTimeout: pollTimeout}, nil
}

// Upload streams audio to AssemblyAI storage and returns its URL.
func (r *REST) Upload(ctx context.Context, audio io.Reader) (string, error) {
	resp, err := httpclient.Post[uploadResponse](r.http, ctx, "/upload", audio)
	if err != nil {
		return "", wrapErr(ctx, "upload", err)
	}
	if resp.Data.UploadURL == "" {
		return "", apperrors.ExternalServiceError(ProviderName, nil).WithDetail("reason", "upload returned no url")
	}
	return resp.Data.UploadURL, nil
}

// Submit queues a transcript.
func (r *REST) Submit(ctx context.Context, req TranscriptRequest) (*Transcript, error) {
	resp, err := httpclient.Post[Transcript](r.http, ctx, "/transcript", req)
	if err != nil {
		return nil, wrapErr(ctx, "submit", err)
	}
	return &resp.Data, nil
}

// Get fetches a transcript by id.
func (r *REST) Get(ctx context.Context, id string) (*Transcript, error) {
	resp, err := httpclient.Get[Transcript](r.http, ctx, "/transcript/"+id)
	if err != nil {
		if httpclient.IsNotFound(err) && ctx.Err() == nil {
			return nil, apperrors.NotFound("transcript", id).WithCause(err)
		}
		return nil, wrapErr(ctx, "get transcript", err)
	}
	return &resp.Data, nil
}

// Wait polls a transcript until it completes or fails.
func (r *REST) Wait(ctx context.Context, id string) (*Transcript, error) {
	t, err := resilience.Poll(ctx, resilience.PollConfig{
		Interval:  r.pollInterval,
		Timeout:   r.pollTimeout,
		Operation: "transcript " + id,
	}, func() (*Transcript, bool, error) {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return t, t.Status == StatusCompleted || t.Status == StatusError, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Canceled("transcribe", ctx.Err())
		}
		return nil, err
	}
	if t.Status == StatusError {
		return nil, apperrors.ExternalServiceError(ProviderName, nil).
			WithDetail("transcript_id", t.ID).
			WithDetail("reason", t.Error)
	}
	return t, nil
}

// Close releases idle connections.
func (r *REST) Close() {
	r.http.CloseIdleConnections()
}

func wrapErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return apperrors.Canceled(op, err)
	}
	if httpclient.IsAuth(err) {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "AssemblyAI rejected the API key.").WithCause(err)
	}
	return apperrors.ExternalServiceError(ProviderName, err).WithDetail("operation", op)
}
