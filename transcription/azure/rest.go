package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/httpclient"
)

const restPath = "/speech/recognition/conversation/cognitiveservices/v1"

// Short-audio recognition statuses.
const (
	statusSuccess               = "Success"
	statusNoMatch               = "NoMatch"
	statusInitialSilenceTimeout = "InitialSilenceTimeout"
	statusBabbleTimeout         = "BabbleTimeout"
	statusError                 = "Error"
)

type restResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
}

// RESTRecognizer recognizes speech with the short-audio REST endpoint.
type RESTRecognizer struct {
	http *httpclient.Client
}

// NewRESTRecognizer creates a recognizer for endpoint, or for the region's
// default endpoint when endpoint is empty.
func NewRESTRecognizer(subscriptionKey, region, endpoint string) (*RESTRecognizer, error) {
	if endpoint == "" {
		if region == "" {
			return nil, apperrors.InvalidInput("region", "a region or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://%s.stt.speech.microsoft.com", region)
	}
	hc, err := httpclient.New(httpclient.Config{
		BaseURL: endpoint,
		Timeout: -1,
		Auth:    httpclient.APIKeyAuthHeader(subscriptionKey, "Ocp-Apim-Subscription-Key"),
		Headers: map[string]string{"Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	return &RESTRecognizer{http: hc}, nil
}

// RecognizeOnce streams audio to the service and returns its single
// result. A service-side recognition error is a ReasonCanceled result.
func (r *RESTRecognizer) RecognizeOnce(ctx context.Context, audio io.Reader, cfg RecognitionConfig) (*Result, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	resp, err := httpclient.Post[restResponse](r.http, ctx, restPath, audio,
		httpclient.WithQueryParam("language", cfg.Language),
		httpclient.WithQueryParam("format", "simple"),
		httpclient.WithHeader("Content-Type", "audio/wav; codecs=audio/pcm; samplerate="+strconv.Itoa(rate)),
	)
	if err != nil {
		return nil, err
	}

	id := resp.Header.Get("X-RequestId")
	if id == "" {
		id = uuid.NewString()
	}
	res := &Result{
		ResultID: id,
		Text:     resp.Data.DisplayText,
		Offset:   resp.Data.Offset,
		Duration: resp.Data.Duration,
	}
	switch resp.Data.RecognitionStatus {
	case statusSuccess:
		res.Reason = ReasonRecognizedSpeech
	case statusNoMatch, statusInitialSilenceTimeout, statusBabbleTimeout:
		res.Reason = ReasonNoMatch
	default:
		res.Reason = ReasonCanceled
	}
	return res, nil
}

// StartContinuousRecognition runs one recognition over audio in the
// background and reports it as a session: SessionStarted, then Recognized
// or Canceled, then SessionStopped.
func (r *RESTRecognizer) StartContinuousRecognition(ctx context.Context, audio io.Reader, cfg RecognitionConfig, events Events) (Recognition, error) {
	rctx, cancel := context.WithCancel(ctx)
	rec := &restRecognition{cancel: cancel, done: make(chan struct{})}
	sessionID := uuid.NewString()

	go func() {
		defer close(rec.done)
		defer cancel()
		if events.SessionStarted != nil {
			events.SessionStarted(SessionEvent{SessionID: sessionID})
		}

		res, err := r.RecognizeOnce(rctx, audio, cfg)
		switch {
		case err != nil && rctx.Err() != nil:
			// Stopped.
		case err != nil:
			if events.Canceled != nil {
				events.Canceled(CancellationEvent{
					SessionID:    sessionID,
					Reason:       CancellationError,
					ErrorCode:    cancellationCode(err),
					ErrorDetails: err.Error(),
				})
			}
		case res.Reason == ReasonCanceled:
			if events.Canceled != nil {
				events.Canceled(CancellationEvent{
					SessionID:    sessionID,
					Reason:       CancellationError,
					ErrorCode:    "ServiceError",
					ErrorDetails: "recognition failed",
					Offset:       res.Offset,
				})
			}
		default:
			res.SessionID = sessionID
			if events.Recognized != nil {
				events.Recognized(*res)
			}
			if events.Canceled != nil {
				events.Canceled(CancellationEvent{SessionID: sessionID, Reason: CancellationEndOfStream, Offset: res.Offset + res.Duration})
			}
		}

		if events.SessionStopped != nil {
			events.SessionStopped(SessionEvent{SessionID: sessionID})
		}
	}()
	return rec, nil
}

// Close releases idle connections.
func (r *RESTRecognizer) Close() error {
	r.http.CloseIdleConnections()
	return nil
}

type restRecognition struct {
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (r *restRecognition) Stop(ctx context.Context) error {
	r.closeOnce.Do(r.cancel)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *restRecognition) Done() <-chan struct{} { return r.done }

// cancellationCode names a failure the way the Speech service does.
func cancellationCode(err error) string {
	var httpErr *httpclient.Error
	if !errors.As(err, &httpErr) {
		return "RuntimeError"
	}
	switch httpErr.Code {
	case httpclient.ErrCodeAuth:
		return "AuthenticationFailure"
	case httpclient.ErrCodeRateLimit:
		return "TooManyRequests"
	case httpclient.ErrCodeValidation, httpclient.ErrCodeNotFound:
		return "BadRequest"
	case httpclient.ErrCodeConnection, httpclient.ErrCodeTimeout:
		return "ConnectionFailure"
	default:
		return "ServiceError"
	}
}
