package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/speechkit/audio"
	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/provider"
	"github.com/kbukum/speechkit/transcription"
)

func TestPushStream(t *testing.T) {
	t.Run("zero-length write ends", func(t *testing.T) {
		p := NewPushStream()
		_, _ = p.Write([]byte("ab"))
		_, _ = p.Write([]byte("cd"))
		_, _ = p.Write(nil)
		data, err := io.ReadAll(p)
		if err != nil || string(data) != "abcd" {
			t.Fatalf("got %q, %v", data, err)
		}
		if _, err := p.Write([]byte("late")); !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("expected closed pipe, got %v", err)
		}
	})

	t.Run("reader blocks until write", func(t *testing.T) {
		p := NewPushStream()
		got := make(chan string, 1)
		go func() {
			data, _ := io.ReadAll(p)
			got <- string(data)
		}()
		time.Sleep(10 * time.Millisecond)
		_, _ = p.Write([]byte("late audio"))
		_ = p.Close()
		select {
		case s := <-got:
			if s != "late audio" {
				t.Errorf("got %q", s)
			}
		case <-time.After(time.Second):
			t.Fatal("reader did not finish")
		}
	})

	t.Run("close with error after data", func(t *testing.T) {
		p := NewPushStream()
		boom := errors.New("source failed")
		_, _ = p.Write([]byte("x"))
		_ = p.CloseWithError(boom)
		_ = p.Close()
		data, err := io.ReadAll(p)
		if string(data) != "x" || !errors.Is(err, boom) {
			t.Fatalf("got %q, %v", data, err)
		}
	})
}

// scriptedRecognizer reads all audio, then replays a scripted session.
type scriptedRecognizer struct {
	once     *Result
	onceErr  error
	script   func(ev Events)
	mu       sync.Mutex
	received []byte
	cfg      RecognitionConfig
	stops    atomic.Int32
	block    bool
	noStop   bool
}

func (s *scriptedRecognizer) RecognizeOnce(_ context.Context, r io.Reader, cfg RecognitionConfig) (*Result, error) {
	data, err := io.ReadAll(r)
	s.mu.Lock()
	s.received, s.cfg = data, cfg
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.once, s.onceErr
}

type scriptedRecognition struct {
	stop    func()
	done    chan struct{}
	stopped sync.Once
}

func (r *scriptedRecognition) Stop(ctx context.Context) error {
	r.stopped.Do(r.stop)
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *scriptedRecognition) Done() <-chan struct{} { return r.done }

func (s *scriptedRecognizer) StartContinuousRecognition(ctx context.Context, r io.Reader, cfg RecognitionConfig, ev Events) (Recognition, error) {
	stopCh := make(chan struct{})
	rec := &scriptedRecognition{done: make(chan struct{})}
	rec.stop = func() {
		s.stops.Add(1)
		close(stopCh)
	}
	go func() {
		defer close(rec.done)
		ev.SessionStarted(SessionEvent{SessionID: "az-1"})
		if s.block {
			s.script(ev)
			<-stopCh
		} else {
			data, _ := io.ReadAll(r)
			s.mu.Lock()
			s.received, s.cfg = data, cfg
			s.mu.Unlock()
			s.script(ev)
		}
		if !s.noStop {
			ev.SessionStopped(SessionEvent{SessionID: "az-1"})
		}
	}()
	return rec, nil
}

func TestTranscribe(t *testing.T) {
	rec := &scriptedRecognizer{once: &Result{ResultID: "r1", Reason: ReasonRecognizedSpeech, Text: "hello", Offset: 5_000_000, Duration: 15_000_000}}
	c := NewWithRecognizer(Config{}, rec)

	var all []byte
	var chunks []audio.Chunk
	for i := 0; i < 10; i++ {
		block := bytes.Repeat([]byte{byte(i + 1)}, audio.DefaultBlockSize)
		chunks = append(chunks, audio.NewDataChunk(block, "audio/wav"))
		all = append(all, block...)
	}
	comp, err := c.Transcribe(context.Background(), audio.FromChunks(chunks...), transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec.received, all) {
		t.Fatalf("recognizer read %d bytes, want %d", len(rec.received), len(all))
	}
	if rec.cfg.Language != DefaultLanguage || rec.cfg.SampleRate != DefaultSampleRate {
		t.Errorf("unexpected config %+v", rec.cfg)
	}
	if comp.ID != "r1" || comp.Text() != "hello" || comp.End != 1500*time.Millisecond || comp.Start != 0 {
		t.Errorf("unexpected completion %+v", comp)
	}
	if comp.Properties["reason"] != "RecognizedSpeech" {
		t.Errorf("unexpected properties %v", comp.Properties)
	}
	if _, ok := comp.Raw.(*Result); !ok {
		t.Errorf("unexpected raw %T", comp.Raw)
	}
}

func TestTranscribeNoMatch(t *testing.T) {
	rec := &scriptedRecognizer{once: &Result{ResultID: "r2", Reason: ReasonNoMatch, Duration: 8_000_000}}
	c := NewWithRecognizer(Config{}, rec)
	comp, err := c.Transcribe(context.Background(), audio.FromBytes([]byte("noise"), ""), transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if comp.HasText() || comp.Content != nil {
		t.Errorf("expected no content, got %+v", comp.Content)
	}
	if comp.ID != "r2" || comp.End != 800*time.Millisecond || comp.Properties["reason"] != "NoMatch" {
		t.Errorf("unexpected completion %+v", comp)
	}
}

func TestTranscribeRejects(t *testing.T) {
	c := NewWithRecognizer(Config{}, &scriptedRecognizer{once: &Result{}})
	ctx := context.Background()

	_, err := c.Transcribe(ctx, audio.NewReferenceSource("file:///tmp/a.wav"), transcription.Options{})
	if !apperrors.IsUnsupported(err) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	_, err = c.TranscribeStream(ctx, audio.NewReferenceSource("file:///tmp/a.wav"), transcription.Options{})
	if !apperrors.IsUnsupported(err) {
		t.Fatalf("expected unsupported for streaming, got %v", err)
	}
	_, err = c.Transcribe(ctx, audio.FromChunks(audio.NewDataChunk([]byte("pcm"), ""), audio.NewURIChunk("https://x/a.wav", "")), transcription.Options{})
	if !apperrors.IsUnsupported(err) {
		t.Fatalf("expected unsupported for a mid-stream reference, got %v", err)
	}
	_, err = c.Transcribe(ctx, audio.FromChunks(), transcription.Options{})
	if !apperrors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestTranscribeRecognizerError(t *testing.T) {
	c := NewWithRecognizer(Config{}, &scriptedRecognizer{onceErr: errors.New("socket reset")})
	_, err := c.Transcribe(context.Background(), audio.FromBytes([]byte("pcm"), ""), transcription.Options{})
	if !apperrors.HasCode(err, apperrors.ErrCodeExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestTranscribeStreamEvents(t *testing.T) {
	rec := &scriptedRecognizer{script: func(ev Events) {
		ev.Recognizing(Result{Reason: ReasonRecognizingSpeech, Text: "hel", Offset: 0, Duration: 3_000_000})
		ev.Recognizing(Result{Reason: ReasonRecognizingSpeech, Text: ""})
		ev.Recognized(Result{Reason: ReasonRecognizedSpeech, Text: "hello world", Offset: 0, Duration: 12_000_000})
		ev.Recognized(Result{Reason: ReasonNoMatch, Offset: 12_000_000, Duration: 1_000_000})
		ev.Canceled(CancellationEvent{Reason: CancellationEndOfStream})
	}}
	c := NewWithRecognizer(Config{Language: "de-DE"}, rec)

	it, err := c.TranscribeStream(context.Background(), audio.FromBytes([]byte("pcm-data"), "audio/wav"), transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := provider.Collect[transcription.Update](context.Background(), it)
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		kind transcription.UpdateKind
		text string
	}{
		{transcription.KindSessionOpen, ""},
		{transcription.KindTranscribing, "hel"},
		{transcription.KindTranscribed, "hello world"},
		{transcription.KindNoMatch, noMatchText},
		{transcription.KindSessionClose, ""},
	}
	if len(updates) != len(want) {
		t.Fatalf("got %+v", updates)
	}
	for i, w := range want {
		if updates[i].Kind != w.kind || updates[i].Text != w.text {
			t.Errorf("update %d: got %s %q, want %s %q", i, updates[i].Kind, updates[i].Text, w.kind, w.text)
		}
		if updates[i].ID != "az-1" {
			t.Errorf("update %d: unexpected id %q", i, updates[i].ID)
		}
	}
	if updates[2].End != 1200*time.Millisecond {
		t.Errorf("unexpected end %v", updates[2].End)
	}
	if string(rec.received) != "pcm-data" || rec.cfg.Language != "de-DE" {
		t.Errorf("recognizer saw %q with %+v", rec.received, rec.cfg)
	}
}

func TestTranscribeStreamCanceledEvent(t *testing.T) {
	rec := &scriptedRecognizer{script: func(ev Events) {
		ev.Canceled(CancellationEvent{Reason: CancellationError, ErrorCode: "AuthenticationFailure", ErrorDetails: "bad key", Offset: 10_000_000})
	}}
	c := NewWithRecognizer(Config{}, rec)
	it, err := c.TranscribeStream(context.Background(), audio.FromBytes([]byte("pcm"), ""), transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := provider.Collect[transcription.Update](context.Background(), it)
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 3 || updates[1].Kind != transcription.KindError {
		t.Fatalf("unexpected updates %+v", updates)
	}
	e := updates[1]
	if e.Properties["error_code"] != "AuthenticationFailure" || e.Properties["reason"] != "Error" || e.Properties["error_details"] != "bad key" {
		t.Errorf("unexpected properties %v", e.Properties)
	}
	if e.Start != time.Second || !strings.Contains(e.Text, "ErrorCode=AuthenticationFailure") {
		t.Errorf("unexpected error update %+v", e)
	}
}

// liveSource yields one chunk, then blocks until canceled.
type liveSource struct {
	sent   bool
	closed atomic.Int32
}

func (l *liveSource) Next(ctx context.Context) (audio.Chunk, bool, error) {
	if !l.sent {
		l.sent = true
		return audio.NewDataChunk([]byte("pcm"), ""), true, nil
	}
	<-ctx.Done()
	return audio.Chunk{}, false, ctx.Err()
}

func (l *liveSource) Close() error {
	l.closed.Add(1)
	return nil
}

func TestTranscribeStreamErrorClosesLiveSession(t *testing.T) {
	rec := &scriptedRecognizer{block: true, noStop: true, script: func(ev Events) {
		ev.Recognizing(Result{Text: "one"})
		ev.Canceled(CancellationEvent{Reason: CancellationError, ErrorCode: "ServiceTimeout", ErrorDetails: "idle"})
	}}
	c := NewWithRecognizer(Config{}, rec)
	src := &liveSource{}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	it, err := c.TranscribeStream(ctx, src, transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := provider.Collect[transcription.Update](ctx, it)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Err() != nil {
		t.Fatal("session did not close after the cancellation error")
	}

	want := []transcription.UpdateKind{
		transcription.KindSessionOpen,
		transcription.KindTranscribing,
		transcription.KindError,
		transcription.KindSessionClose,
	}
	if len(updates) != len(want) {
		t.Fatalf("unexpected updates %+v", updates)
	}
	for i, k := range want {
		if updates[i].Kind != k {
			t.Errorf("update %d: got %s, want %s", i, updates[i].Kind, k)
		}
	}
	if updates[2].Properties["error_code"] != "ServiceTimeout" {
		t.Errorf("unexpected error properties %v", updates[2].Properties)
	}
	if n := rec.stops.Load(); n != 1 {
		t.Errorf("expected one stop, got %d", n)
	}
	if src.closed.Load() == 0 {
		t.Error("source was not closed")
	}
}

func TestTranscribeStreamCancel(t *testing.T) {
	rec := &scriptedRecognizer{block: true, script: func(ev Events) {
		ev.Recognizing(Result{Text: "one"})
		ev.Recognizing(Result{Text: "one two"})
		ev.Recognizing(Result{Text: "one two three"})
	}}
	c := NewWithRecognizer(Config{}, rec)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	it, err := c.TranscribeStream(ctx, audio.FromBytes([]byte("pcm"), ""), transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, ok, err := it.Next(ctx); !ok || err != nil {
			t.Fatalf("update %d: ok=%v err=%v", i, ok, err)
		}
	}
	cancel()
	if _, ok, err := it.Next(ctx); ok || err != nil {
		t.Fatalf("expected clean end, got ok=%v err=%v", ok, err)
	}
	_ = it.Close()
	if n := rec.stops.Load(); n != 1 {
		t.Errorf("expected one stop, got %d", n)
	}
}

func TestRESTRecognizer(t *testing.T) {
	var gotBody []byte
	var gotQuery, gotKey, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != restPath {
			http.NotFound(w, r)
			return
		}
		gotBody, _ = io.ReadAll(r.Body)
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("X-RequestId", "req-9")
		status := "Success"
		if len(gotBody) == 0 {
			status = "InitialSilenceTimeout"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"RecognitionStatus": status,
			"DisplayText":       "Hello there.",
			"Offset":            1_000_000,
			"Duration":          20_000_000,
		})
	}))
	defer srv.Close()

	c, err := New(Config{SubscriptionKey: "sub", Endpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	comp, err := c.Transcribe(context.Background(), audio.FromBytes([]byte("RIFFpcm"), "audio/wav"), transcription.Options{Language: "fr-FR"})
	if err != nil {
		t.Fatal(err)
	}
	if string(gotBody) != "RIFFpcm" || gotKey != "sub" || !strings.Contains(gotType, "samplerate=16000") {
		t.Errorf("server saw body=%q key=%q type=%q", gotBody, gotKey, gotType)
	}
	if !strings.Contains(gotQuery, "language=fr-FR") {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if comp.ID != "req-9" || comp.Text() != "Hello there." || comp.End != 2*time.Second {
		t.Errorf("unexpected completion %+v", comp)
	}

	it, err := c.TranscribeStream(context.Background(), audio.FromBytes([]byte("more"), ""), transcription.Options{})
	if err != nil {
		t.Fatal(err)
	}
	updates, err := provider.Collect[transcription.Update](context.Background(), it)
	if err != nil {
		t.Fatal(err)
	}
	kinds := make([]transcription.UpdateKind, len(updates))
	for i, u := range updates {
		kinds[i] = u.Kind
	}
	if len(kinds) != 3 || kinds[0] != transcription.KindSessionOpen || kinds[1] != transcription.KindTranscribed || kinds[2] != transcription.KindSessionClose {
		t.Fatalf("unexpected kinds %v", kinds)
	}
	if updates[1].Start != 100*time.Millisecond || updates[1].End != 2100*time.Millisecond {
		t.Errorf("unexpected timing %v-%v", updates[1].Start, updates[1].End)
	}
}

func TestRESTRecognizerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rec, err := NewRESTRecognizer("bad", "", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	var canceled []CancellationEvent
	var stopped atomic.Bool
	stream := NewPushStream()
	_, _ = stream.Write([]byte("pcm"))
	_ = stream.Close()
	r, err := rec.StartContinuousRecognition(context.Background(), stream, RecognitionConfig{Language: "en-US"}, Events{
		Canceled:       func(e CancellationEvent) { canceled = append(canceled, e) },
		SessionStopped: func(SessionEvent) { stopped.Store(true) },
	})
	if err != nil {
		t.Fatal(err)
	}
	<-r.Done()
	if len(canceled) != 1 || canceled[0].ErrorCode != "AuthenticationFailure" || canceled[0].Reason != CancellationError {
		t.Fatalf("unexpected cancellations %+v", canceled)
	}
	if !stopped.Load() {
		t.Error("session stop not delivered")
	}

	if _, err := NewRESTRecognizer("k", "", ""); !apperrors.IsInvalidInput(err) {
		t.Errorf("expected missing region error, got %v", err)
	}
	if _, err := New(Config{Region: "westeurope"}); !apperrors.IsInvalidInput(err) {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
		rate int
	}{
		{"default rate", map[string]any{"subscription_key": "k", "region": "westeurope"}, DefaultSampleRate},
		{"yaml int", map[string]any{"subscription_key": "k", "region": "westeurope", "sample_rate": 8000}, 8000},
		{"json number", map[string]any{"subscription_key": "k", "region": "westeurope", "sample_rate": float64(44100)}, 44100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := Factory(tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			c := client.(*Client)
			if c.cfg.SampleRate != tt.rate || c.recognitionConfig(transcription.Options{}).SampleRate != tt.rate {
				t.Errorf("sample rate = %d, want %d", c.cfg.SampleRate, tt.rate)
			}
			if got := c.recognitionConfig(transcription.Options{SampleRate: 22050}).SampleRate; got != 22050 {
				t.Errorf("per-call sample rate = %d", got)
			}
		})
	}

	if _, err := Factory(map[string]any{"region": "westeurope"}); !apperrors.IsInvalidInput(err) {
		t.Fatalf("expected invalid input without a key, got %v", err)
	}
}
