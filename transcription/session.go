package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/speechkit/logger"
	"github.com/kbukum/speechkit/observability"
)

// State is the lifecycle position of a streaming session.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// DefaultCloseTimeout bounds the graceful close of a backend session.
const DefaultCloseTimeout = 10 * time.Second

// Session turns backend callbacks into an ordered Iterator of Updates.
//
// Backend callbacks call Open, Emit, Fail and Closed from any goroutine.
// They append to an unbounded FIFO; Next pops from it, blocking until an
// update arrives, the session closes, or a context is canceled. Updates
// are dropped once the session is closed.
//
// Start runs the upload in its own goroutine. When the upload returns, or
// the caller cancels, the closer passed to Start runs exactly once with a
// context detached from the caller's cancellation.
type Session struct {
	backend string
	log     *logger.Logger

	mu     sync.Mutex
	id     string
	opened bool
	state  State
	queue  []Update
	err    error
	notify chan struct{}

	streamCtx    context.Context
	cancelUpload context.CancelFunc
	uploadDone   chan struct{}
	closer       func(ctx context.Context) error
	closeTimeout time.Duration
	closeOnce    sync.Once
}

// NewSession creates a session in the Connecting state.
func NewSession(backend string, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Get("transcription." + backend)
	}
	return &Session{
		backend:      backend,
		log:          log.WithBackend(backend),
		notify:       make(chan struct{}, 1),
		streamCtx:    context.Background(),
		cancelUpload: func() {},
		closeTimeout: DefaultCloseTimeout,
	}
}

// WithCloseTimeout overrides DefaultCloseTimeout.
func (s *Session) WithCloseTimeout(d time.Duration) *Session {
	if d > 0 {
		s.closeTimeout = d
	}
	return s
}

// ID returns the backend session id, empty until Open.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open records the backend session id and queues a sessionopen update.
// It moves Connecting to Open; a session already closing stays closing.
// Only the first call has an effect.
func (s *Session) Open(id string, props map[string]any, raw any) {
	s.mu.Lock()
	if s.opened || s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.opened = true
	s.id = id
	if s.state == StateConnecting {
		s.state = StateOpen
	}
	s.pushLocked(Update{ID: id, Kind: KindSessionOpen, Properties: props, Raw: raw})
	streamCtx := s.streamCtx
	s.mu.Unlock()

	observability.SetSpanAttribute(streamCtx, observability.AttrSessionID, id)
	s.log.WithSession(id).Info("session open")
}

// Emit queues an update. Transcribing and transcribed updates with empty
// text are dropped. A missing ID is filled with the session id.
func (s *Session) Emit(u Update) {
	if u.Kind.carriesText() && u.Text == "" {
		s.log.Debug("empty update dropped", logger.Fields(logger.FieldUpdateKind, u.Kind.String()))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	if u.ID == "" {
		u.ID = s.id
	}
	s.pushLocked(u)
}

// Fail queues u as an error update and starts closing the session: the
// upload is canceled and the graceful close runs. A missing ID is filled
// with the session id.
func (s *Session) Fail(u Update) {
	u.Kind = KindError
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	if u.ID == "" {
		u.ID = s.id
	}
	s.pushLocked(u)
	s.state = StateClosing
	cancel := s.cancelUpload
	s.mu.Unlock()

	s.log.Warn("session error", logger.Fields(logger.FieldError, u.Text))
	cancel()
}

// Closed marks the session closed and queues the final sessionclose update.
// Later calls are ignored.
func (s *Session) Closed(props map[string]any, raw any) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.pushLocked(Update{ID: s.id, Kind: KindSessionClose, Properties: props, Raw: raw})
	s.state = StateClosed
	cancel := s.cancelUpload
	s.mu.Unlock()

	s.log.Info("session closed")
	cancel()
}

// Start runs upload concurrently with the consumer. closer performs the
// graceful backend close; it may be nil when there is nothing to close.
// An upload error is reported in-band as an error update and returned by
// the final Next.
func (s *Session) Start(ctx context.Context, closer func(ctx context.Context) error, upload func(ctx context.Context) error) {
	uploadCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.streamCtx = ctx
	s.cancelUpload = cancel
	s.closer = closer
	s.uploadDone = make(chan struct{})
	done := s.uploadDone
	s.mu.Unlock()

	go func() {
		defer close(done)
		err := upload(uploadCtx)
		if err != nil && uploadCtx.Err() == nil {
			observability.SetSpanError(ctx, err)
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.Fail(Update{Text: err.Error(), Raw: err})
		}
		s.shutdown()
	}()
}

// Next returns the next update in arrival order. It reports exhaustion
// once the session is closed and drained, or as soon as ctx or the
// stream's context is canceled, after closing the backend.
func (s *Session) Next(ctx context.Context) (Update, bool, error) {
	for {
		if ctx.Err() != nil || s.streamCtx.Err() != nil {
			s.shutdown()
			return Update{}, false, nil
		}

		s.mu.Lock()
		if len(s.queue) > 0 {
			u := s.queue[0]
			s.queue[0] = Update{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			s.log.Debug("update", logger.Fields(logger.FieldUpdateKind, u.Kind.String()))
			return u, true, nil
		}
		if s.state == StateClosed {
			err := s.err
			s.mu.Unlock()
			return Update{}, false, err
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
		case <-s.streamCtx.Done():
		}
	}
}

// Close stops the upload, closes the backend and waits for the upload
// goroutine to return.
func (s *Session) Close() error {
	s.shutdown()
	s.mu.Lock()
	done := s.uploadDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

// shutdown runs the graceful close once. Close errors are logged, not
// returned: they routinely race with cancellation.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.state != StateClosed {
			s.state = StateClosing
		}
		closer := s.closer
		streamCtx := s.streamCtx
		cancelUpload := s.cancelUpload
		s.mu.Unlock()
		cancelUpload()

		if closer != nil {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(streamCtx), s.closeTimeout)
			err := closer(ctx)
			cancel()
			if err != nil {
				s.log.Warn("backend close failed", logger.ErrorFields("close", err))
			}
		}
		s.Closed(nil, nil)
	})
}

func (s *Session) pushLocked(u Update) {
	s.queue = append(s.queue, u)
	s.signalLocked()
}

func (s *Session) signalLocked() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
