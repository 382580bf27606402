package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/speechkit/resilience"
)

func fastRetry() *resilience.RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestClient_DoAppliesConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "key-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Client"); got != "speechkit" {
			t.Errorf("missing default header, got %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en_us" {
			t.Errorf("unexpected query %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c, err := New(Config{
		BaseURL: srv.URL + "/v2/",
		Auth:    APIKeyAuthHeader("key-1", "Authorization"),
		Headers: map[string]string{"X-Client": "speechkit"},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/transcript",
		Query:  map[string]string{"language": "en_us"},
		Body:   map[string]string{"audio_url": "https://example.com/a.wav"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated || !resp.IsSuccess() {
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "example.com") {
		t.Errorf("unexpected body %s", resp.Body)
	}
}

func TestClient_RequestAuthOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Auth: APIKeyAuthHeader("default", "Authorization")})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/", Auth: APIKeyAuthHeader("override", "Authorization")})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "override" {
		t.Errorf("unexpected auth %q", resp.Body)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_DoesNotRetryStreamingBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/upload", Body: strings.NewReader("pcm")})
	if !IsRetryable(err) {
		t.Fatalf("expected a retryable server error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("streaming body sent %d times", calls.Load())
	}
}

func TestClient_ClassifiesTimeouts(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/slow"})
	var httpErr *Error
	if !errors.As(err, &httpErr) || httpErr.Code != ErrCodeTimeout || !httpErr.Retryable {
		t.Fatalf("expected a retryable timeout error, got %v", err)
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, ErrCodeAuth, false},
		{http.StatusForbidden, ErrCodeAuth, false},
		{http.StatusNotFound, ErrCodeNotFound, false},
		{http.StatusTooManyRequests, ErrCodeRateLimit, true},
		{http.StatusBadRequest, ErrCodeValidation, false},
		{http.StatusInternalServerError, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyStatusCode(tt.status, []byte(" details \n"))
			if err.Code != tt.code || err.Retryable != tt.retryable {
				t.Errorf("got %s retryable=%v", err.Code, err.Retryable)
			}
			if err.Message != "details" {
				t.Errorf("unexpected message %q", err.Message)
			}
		})
	}
	if ClassifyStatusCode(http.StatusOK, nil) != nil {
		t.Error("2xx should not be an error")
	}
}

func TestErrorPredicates(t *testing.T) {
	err := ClassifyStatusCode(http.StatusNotFound, nil)
	if !IsNotFound(err) || IsAuth(err) {
		t.Errorf("unexpected classification for %v", err)
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestConfigValidate(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url"}); err == nil {
		t.Error("expected invalid base URL to fail")
	}
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout {
		t.Errorf("unexpected default timeout %v", cfg.Timeout)
	}
}
