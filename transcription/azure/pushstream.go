package azure

import (
	"bytes"
	"io"
	"sync"
)

// PushStream is an unbounded in-memory pipe. Writers never block; a
// single reader blocks until data arrives or the stream ends. A
// zero-length Write ends the stream, as does Close.
type PushStream struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	err    error
	notify chan struct{}
}

// NewPushStream creates an open stream.
func NewPushStream() *PushStream {
	return &PushStream{notify: make(chan struct{}, 1)}
}

// Write appends p. Writing after the end is io.ErrClosedPipe.
func (p *PushStream) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	if len(b) == 0 {
		p.closed = true
	} else {
		p.buf.Write(b)
	}
	p.signal()
	return len(b), nil
}

// Close ends the stream; the reader sees io.EOF after the buffered data.
func (p *PushStream) Close() error {
	return p.CloseWithError(nil)
}

// CloseWithError ends the stream; the reader sees err after the buffered
// data. Only the first close has an effect.
func (p *PushStream) CloseWithError(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		p.err = err
		p.signal()
	}
	return nil
}

// Read blocks until data is buffered or the stream has ended.
func (p *PushStream) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	for {
		p.mu.Lock()
		if p.buf.Len() > 0 {
			n, _ := p.buf.Read(b)
			p.mu.Unlock()
			return n, nil
		}
		if p.closed {
			err := p.err
			p.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		p.mu.Unlock()
		<-p.notify
	}
}

func (p *PushStream) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
