package azure

import (
	"context"
	"io"
	"time"
)

// ResultReason is the outcome of a recognition.
type ResultReason int

const (
	ReasonRecognizingSpeech ResultReason = iota
	ReasonRecognizedSpeech
	ReasonNoMatch
	ReasonCanceled
)

func (r ResultReason) String() string {
	switch r {
	case ReasonRecognizingSpeech:
		return "RecognizingSpeech"
	case ReasonRecognizedSpeech:
		return "RecognizedSpeech"
	case ReasonNoMatch:
		return "NoMatch"
	case ReasonCanceled:
		return "Canceled"
	}
	return "Unknown"
}

// CancellationReason tells a finished stream from a failed one.
type CancellationReason int

const (
	CancellationError CancellationReason = iota + 1
	CancellationEndOfStream
)

func (r CancellationReason) String() string {
	switch r {
	case CancellationError:
		return "Error"
	case CancellationEndOfStream:
		return "EndOfStream"
	}
	return "Unknown"
}

// Result is one recognition result. Offset and Duration are in 100ns
// ticks, as reported by the service.
type Result struct {
	ResultID  string
	SessionID string
	Reason    ResultReason
	Text      string
	Offset    int64
	Duration  int64
}

// Start returns the result offset.
func (r *Result) Start() time.Duration { return ticks(r.Offset) }

// End returns the result offset plus its duration.
func (r *Result) End() time.Duration { return ticks(r.Offset + r.Duration) }

// SessionEvent marks the start or stop of a recognition session.
type SessionEvent struct {
	SessionID string
}

// CancellationEvent reports a recognition that ended early.
type CancellationEvent struct {
	SessionID    string
	Reason       CancellationReason
	ErrorCode    string
	ErrorDetails string
	Offset       int64
}

// Events receives continuous recognition callbacks. SessionStopped is the
// last event of a recognition.
type Events struct {
	SessionStarted func(SessionEvent)
	Recognizing    func(Result)
	Recognized     func(Result)
	Canceled       func(CancellationEvent)
	SessionStopped func(SessionEvent)
}

// RecognitionConfig describes the pushed audio.
type RecognitionConfig struct {
	Language   string
	SampleRate int
}

// Recognition is a running continuous recognition.
type Recognition interface {
	// Stop ends the recognition and waits for SessionStopped or ctx.
	Stop(ctx context.Context) error
	// Done is closed once SessionStopped has been delivered.
	Done() <-chan struct{}
}

// Recognizer reads audio and recognizes speech.
type Recognizer interface {
	// RecognizeOnce recognizes the first utterance of audio.
	RecognizeOnce(ctx context.Context, audio io.Reader, cfg RecognitionConfig) (*Result, error)
	// StartContinuousRecognition recognizes audio until it ends or Stop is
	// called, reporting through events on its own goroutine.
	StartContinuousRecognition(ctx context.Context, audio io.Reader, cfg RecognitionConfig, events Events) (Recognition, error)
}

func ticks(n int64) time.Duration {
	return time.Duration(n) * 100 * time.Nanosecond
}
