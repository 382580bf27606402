package process_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/process"
)

func TestStartReadsOutput(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "printf 'abc'; printf 'def'"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	data, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "abcdef" {
		t.Errorf("output = %q", data)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestStartFailedExit(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo 'no device' >&2; exit 2"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()
	_, err = io.ReadAll(s)
	if !apperrors.HasCode(err, apperrors.ErrCodeExternalService) {
		t.Fatalf("err = %v, want EXTERNAL_SERVICE_ERROR", err)
	}
	if !strings.Contains(s.Stderr(), "no device") {
		t.Errorf("Stderr = %q", s.Stderr())
	}
}

func TestStartCloseStopsProcess(t *testing.T) {
	s, err := process.Start(context.Background(), process.Command{
		Binary:      "sh",
		Args:        []string{"-c", "while true; do printf x; sleep 0.01; done"},
		GracePeriod: 200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	buf := make([]byte, 1)
	if _, err := io.ReadFull(s, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the process")
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := process.Start(context.Background(), process.Command{Binary: "definitely-not-a-real-tool-xyz"})
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if _, err := process.Start(context.Background(), process.Command{}); !apperrors.IsInvalidInput(err) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}
