package assemblyai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	apperrors "github.com/kbukum/speechkit/errors"
)

// DefaultRealtimeURL is the AssemblyAI realtime endpoint.
const DefaultRealtimeURL = "wss://api.assemblyai.com/v2/realtime/ws"

// Realtime message types.
const (
	MessageSessionBegins     = "SessionBegins"
	MessagePartialTranscript = "PartialTranscript"
	MessageFinalTranscript   = "FinalTranscript"
	MessageSessionTerminated = "SessionTerminated"
)

var errConnClosed = errors.New("assemblyai: realtime connection closed")

// RealtimeConfig configures a realtime connection.
type RealtimeConfig struct {
	APIKey                    string
	URL                       string
	SampleRate                int
	DisablePartialTranscripts bool
	Dialer                    *websocket.Dialer
}

// SessionBegins is sent once the session is ready for audio.
type SessionBegins struct {
	MessageType string `json:"message_type"`
	SessionID   string `json:"session_id"`
	ExpiresAt   string `json:"expires_at"`
}

// RealtimeTranscript is a partial or final transcript. Audio offsets are
// in milliseconds.
type RealtimeTranscript struct {
	MessageType string  `json:"message_type"`
	Text        string  `json:"text"`
	AudioStart  int64   `json:"audio_start"`
	AudioEnd    int64   `json:"audio_end"`
	Confidence  float64 `json:"confidence"`
	Created     string  `json:"created"`
}

// RealtimeError is an error reported by the service.
type RealtimeError struct {
	Error string `json:"error"`
}

// CloseEvent describes how the connection ended.
type CloseEvent struct {
	Code   int
	Reason string
}

// RealtimeHandler receives session events on the read loop goroutine.
// OnClosed is called exactly once, last.
type RealtimeHandler struct {
	OnSessionBegins     func(SessionBegins)
	OnPartialTranscript func(RealtimeTranscript)
	OnFinalTranscript   func(RealtimeTranscript)
	OnError             func(RealtimeError)
	OnClosed            func(CloseEvent)
}

type envelope struct {
	MessageType string `json:"message_type"`
	Error       string `json:"error"`
}

type audioMessage struct {
	AudioData string `json:"audio_data"`
}

type terminateMessage struct {
	TerminateSession bool `json:"terminate_session"`
}

// RealtimeConn is one realtime transcription session.
type RealtimeConn struct {
	conn    *websocket.Conn
	handler RealtimeHandler

	writeMu    sync.Mutex
	terminated bool
	done       chan struct{}
	closeOnce  sync.Once
}

// Dial opens a realtime session and starts delivering events to handler.
func Dial(ctx context.Context, cfg RealtimeConfig, handler RealtimeHandler) (*RealtimeConn, error) {
	endpoint, err := realtimeURL(cfg)
	if err != nil {
		return nil, err
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	header.Set("Authorization", cfg.APIKey)

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if ctx.Err() != nil {
			return nil, apperrors.Canceled("connect", ctx.Err())
		}
		return nil, apperrors.ConnectionFailed(ProviderName).WithCause(err)
	}

	c := &RealtimeConn{conn: conn, handler: handler, done: make(chan struct{})}
	go c.readLoop()
	return c, nil
}

func realtimeURL(cfg RealtimeConfig) (string, error) {
	raw := cfg.URL
	if raw == "" {
		raw = DefaultRealtimeURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", apperrors.InvalidInput("realtime_url", err.Error())
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(rate))
	if cfg.DisablePartialTranscripts {
		q.Set("disable_partial_transcripts", "true")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SendAudio sends one block of PCM audio.
func (c *RealtimeConn) SendAudio(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return c.writeJSON(audioMessage{AudioData: base64.StdEncoding.EncodeToString(data)}, false)
}

// Terminate asks the service to flush and end the session, waits for the
// connection to close or ctx to expire, then closes it.
func (c *RealtimeConn) Terminate(ctx context.Context) error {
	if err := c.writeJSON(terminateMessage{TerminateSession: true}, true); err != nil && !errors.Is(err, errConnClosed) {
		_ = c.Close()
		return err
	}
	select {
	case <-c.done:
	case <-ctx.Done():
	}
	return c.Close()
}

// Done is closed after OnClosed has returned.
func (c *RealtimeConn) Done() <-chan struct{} { return c.done }

// Close drops the connection and waits for the read loop to finish.
func (c *RealtimeConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
	<-c.done
	return nil
}

func (c *RealtimeConn) writeJSON(v any, terminate bool) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	if c.terminated {
		return errConnClosed
	}
	c.terminated = terminate
	return c.conn.WriteJSON(v)
}

func (c *RealtimeConn) readLoop() {
	closed := CloseEvent{Code: websocket.CloseAbnormalClosure}
	defer func() {
		if c.handler.OnClosed != nil {
			c.handler.OnClosed(closed)
		}
		close(c.done)
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				closed = CloseEvent{Code: ce.Code, Reason: ce.Text}
			} else {
				closed.Reason = err.Error()
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *RealtimeConn) dispatch(msg []byte) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		if c.handler.OnError != nil {
			c.handler.OnError(RealtimeError{Error: "malformed message: " + err.Error()})
		}
		return
	}
	if env.Error != "" {
		if c.handler.OnError != nil {
			c.handler.OnError(RealtimeError{Error: env.Error})
		}
		return
	}

	switch env.MessageType {
	case MessageSessionBegins:
		var m SessionBegins
		if json.Unmarshal(msg, &m) == nil && c.handler.OnSessionBegins != nil {
			c.handler.OnSessionBegins(m)
		}
	case MessagePartialTranscript, MessageFinalTranscript:
		var m RealtimeTranscript
		if json.Unmarshal(msg, &m) != nil {
			return
		}
		if env.MessageType == MessagePartialTranscript {
			if c.handler.OnPartialTranscript != nil {
				c.handler.OnPartialTranscript(m)
			}
		} else if c.handler.OnFinalTranscript != nil {
			c.handler.OnFinalTranscript(m)
		}
	}
}
