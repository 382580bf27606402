package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	apperrors "github.com/kbukum/speechkit/errors"
	"github.com/kbukum/speechkit/logger"
)

const stderrLimit = 4096

// Stream is the standard output of a running command.
type Stream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	cancel context.CancelFunc
	name   string
	log    *logger.Logger

	waitOnce sync.Once
	waitErr  error
	mu       sync.Mutex
	closed   bool
}

// Start launches cmd and returns its standard output. Close the stream to
// stop the process; canceling ctx stops it as well.
func Start(ctx context.Context, cmd Command) (*Stream, error) {
	if cmd.Binary == "" {
		return nil, apperrors.InvalidInput("binary", "is required")
	}
	pctx, cancel := context.WithCancel(ctx)
	c := command(pctx, cmd)
	stdout, err := c.StdoutPipe()
	if err != nil {
		cancel()
		return nil, apperrors.Internal(err)
	}
	stderr := &tailBuffer{limit: stderrLimit}
	c.Stderr = stderr

	if err := c.Start(); err != nil {
		cancel()
		return nil, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("cannot start %s", cmd.Binary)).WithCause(err)
	}
	log := logger.Get("process")
	log.Debug("process started", logger.Fields("binary", cmd.Binary, "pid", c.Process.Pid))
	return &Stream{cmd: c, stdout: stdout, stderr: stderr, cancel: cancel, name: cmd.Binary, log: log}, nil
}

// Read reads standard output. At end of output it waits for the process;
// a failed exit is returned instead of io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, io.EOF) {
		if werr := s.wait(); werr != nil && !s.isClosed() {
			return n, apperrors.ExternalServiceError(s.name, fmt.Errorf("%w: %s", werr, s.stderr.String()))
		}
	}
	return n, err
}

// Close stops the process and waits for it to exit.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	err := s.wait()
	s.log.Debug("process stopped", logger.Fields("binary", s.name, "exit_code", exitCode(s.cmd)))
	if err != nil && exitCode(s.cmd) > 0 {
		return apperrors.ExternalServiceError(s.name, err)
	}
	return nil
}

// Stderr returns the tail of the process's standard error.
func (s *Stream) Stderr() string { return s.stderr.String() }

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Stream) wait() error {
	s.waitOnce.Do(func() { s.waitErr = s.cmd.Wait() })
	return s.waitErr
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
