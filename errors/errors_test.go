package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out")
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if New(ErrCodeInvalidInput, "bad").Retryable {
		t.Error("INVALID_INPUT should not be retryable")
	}
}

func TestAppError_NoAudio(t *testing.T) {
	err := NoAudio()
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "audio" {
		t.Errorf("expected field=audio, got %v", err.Details["field"])
	}
	if !IsInvalidInput(err) {
		t.Error("IsInvalidInput should match NoAudio")
	}
}

func TestAppError_Unsupported(t *testing.T) {
	err := Unsupported("azure", "audio by reference")
	if err.Code != ErrCodeUnsupported {
		t.Errorf("expected UNSUPPORTED_OPERATION, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "azure") {
		t.Errorf("expected backend in message, got %q", err.Message)
	}
	if err.Retryable {
		t.Error("unsupported operations should not be retryable")
	}
}

func TestAppError_WrappedMatching(t *testing.T) {
	wrapped := fmt.Errorf("transcribe: %w", Unsupported("whisper", "audio by reference"))
	if !IsUnsupported(wrapped) {
		t.Error("IsUnsupported should see through fmt.Errorf wrapping")
	}
	if IsInvalidInput(wrapped) {
		t.Error("IsInvalidInput should not match an unsupported error")
	}
	if IsUnsupported(stderrors.New("plain")) {
		t.Error("plain errors are never AppErrors")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := ExternalServiceError("assemblyai", nil).WithCause(cause)
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if !strings.Contains(err.Error(), "root cause") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := NotFound("backend", "vosk").WithDetails(map[string]any{"extra": "info"})
	if err.Details["extra"] != "info" {
		t.Error("expected extra=info in details")
	}
	if err.Details["id"] != "vosk" {
		t.Error("expected original details to be preserved")
	}

	err.WithDetail("extra", "changed")
	if err.Details["extra"] != "changed" {
		t.Error("expected WithDetail to overwrite")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("key", "value")
	if err.Details["key"] != "value" {
		t.Errorf("expected key=value, got %v", err.Details["key"])
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		retryable bool
	}{
		{"ConnectionFailed", ConnectionFailed("realtime"), ErrCodeConnectionFailed, true},
		{"Timeout", Timeout("poll"), ErrCodeTimeout, true},
		{"ExternalServiceError", ExternalServiceError("openai", nil), ErrCodeExternalService, true},
		{"Canceled", Canceled("stream", nil), ErrCodeCanceled, false},
		{"Internal", Internal(nil), ErrCodeInternal, false},
		{"NotFound", NotFound("model", ""), ErrCodeNotFound, false},
		{"Validation", Validation("bad config"), ErrCodeInvalidInput, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
			if IsRetryable(tc.err) != tc.retryable {
				t.Errorf("IsRetryable disagrees with Retryable field")
			}
		})
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(stderrors.New("x")); ok {
		t.Error("expected false for plain error")
	}
	appErr, ok := AsAppError(fmt.Errorf("wrap: %w", Timeout("connect")))
	if !ok {
		t.Fatal("expected AppError through wrapping")
	}
	if appErr.Code != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", appErr.Code)
	}
}
