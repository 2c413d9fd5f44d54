package renewal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Request describes one silent renewal: the authorization URL to load in the
// hidden context and the state value the answer must carry.
type Request struct {
	URL   string
	State string
}

// Message is what the hidden context reports back. Err is set for local
// failures such as a timeout.
type Message struct {
	State            string `json:"state"`
	Code             string `json:"code,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Err              error  `json:"-"`
}

// Loader loads an authorization URL into the hidden browsing context.
type Loader interface {
	Load(ctx context.Context, url string) error
}

type listener struct {
	state   string
	url     string
	ch      chan Message
	timer   *time.Timer
	cancel  context.CancelFunc
	started time.Time
}

// Frame owns the hidden renewal context. At most one listener exists at a
// time and every listener receives at most one message.
type Frame struct {
	origin  string
	timeout time.Duration
	loader  Loader
	logger  *slog.Logger

	mutex   sync.Mutex
	current *listener
}

func NewFrame(origin string, timeout time.Duration, logger *slog.Logger) *Frame {
	return &Frame{
		origin:  origin,
		timeout: timeout,
		loader:  UILoader{},
		logger:  logger.With("component", "renewal_frame"),
	}
}

// UseLoader replaces the default UILoader.
func (f *Frame) UseLoader(loader Loader) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.loader = loader
}

// Open registers a listener for req and starts loading req.URL. A listener
// left over from a previous Open is detached first.
func (f *Frame) Open(ctx context.Context, req Request) (<-chan Message, error) {
	if req.URL == "" {
		return nil, ErrEmptyURL
	}
	if req.State == "" {
		return nil, ErrEmptyState
	}

	loadCtx, cancel := context.WithCancel(ctx)
	l := &listener{
		state:   req.State,
		url:     req.URL,
		ch:      make(chan Message, 1),
		cancel:  cancel,
		started: time.Now(),
	}

	f.mutex.Lock()
	if f.current != nil {
		f.logger.Debug("replacing open renewal listener", "state", f.current.state)
		f.detachLocked(f.current)
	}
	f.current = l
	l.timer = time.AfterFunc(f.timeout, func() {
		f.deliver(l, Message{State: l.state, Err: &RenewalTimeoutError{State: l.state, Timeout: f.timeout}})
	})
	loader := f.loader
	f.mutex.Unlock()

	f.logger.Debug("renewal frame opened", "state", req.State, "timeout", f.timeout)

	go func() {
		if err := loader.Load(loadCtx, req.URL); err != nil && loadCtx.Err() == nil {
			f.logger.Warn("renewal frame failed to load", "state", req.State, "error", err)
			f.deliver(l, Message{State: l.state, Err: fmt.Errorf("renewal frame failed to load: %w", err)})
		}
	}()

	return l.ch, nil
}

// Close detaches the current listener, if any. Its channel is closed without
// a message.
func (f *Frame) Close() {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.current != nil {
		f.logger.Debug("renewal frame closed", "state", f.current.state)
		f.detachLocked(f.current)
		f.current = nil
	}
}

// Post delivers a message from the hidden context. Messages from a foreign
// origin, or for a state that is not currently open, are ignored.
func (f *Frame) Post(origin string, msg Message) bool {
	if origin != f.origin {
		f.logger.Warn("ignoring renewal message from foreign origin", "origin", origin)
		return false
	}

	f.mutex.Lock()
	l := f.current
	f.mutex.Unlock()

	if l == nil || l.state != msg.State {
		f.logger.Debug("ignoring renewal message without matching listener", "state", msg.State)
		return false
	}

	return f.deliver(l, msg)
}

// Active returns the URL of the open listener.
func (f *Frame) Active() (string, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.current == nil {
		return "", false
	}
	return f.current.url, true
}

func (f *Frame) deliver(l *listener, msg Message) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.current != l {
		return false
	}
	f.current = nil

	l.ch <- msg
	f.detachLocked(l)

	f.logger.Debug("renewal message delivered", "state", l.state, "elapsed", time.Since(l.started))
	return true
}

func (f *Frame) detachLocked(l *listener) {
	if l.timer != nil {
		l.timer.Stop()
	}
	l.cancel()
	close(l.ch)
}
