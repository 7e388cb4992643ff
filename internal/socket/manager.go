// Package socket manages the push connection of an authenticated session.
package socket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/listenable"
	"github.com/vovakirdan/channelchat/internal/proto"
)

// ReadyState mirrors the lifecycle of the underlying connection.
type ReadyState int32

const (
	Connecting ReadyState = iota
	Open
	Closing
	Closed
)

func (s ReadyState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotOpen is returned by Send when the connection is not open.
var ErrNotOpen = errors.New("socket is not open")

const defaultReadLimit = 1 << 20

// Options configures Dial.
type Options struct {
	HTTPClient  *http.Client
	Header      http.Header
	DialTimeout time.Duration
	ReadLimit   int64
	Logger      *zerolog.Logger
}

// Manager owns one WebSocket connection. It never reconnects: once the
// connection closes the instance is done and a new one has to be dialed.
type Manager struct {
	url  string
	opts Options
	log  *zerolog.Logger

	state   atomic.Int32
	stopped atomic.Bool

	mu   sync.Mutex
	conn *websocket.Conn
	err  error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	onOpen    *listenable.Listenable[struct{}]
	onMessage *listenable.Listenable[proto.Incoming]
	onClose   *listenable.Listenable[error]
}

// Dial creates a manager and starts connecting to url in the background.
// The manager is in the Connecting state when Dial returns.
func Dial(ctx context.Context, url string, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m := &Manager{
		url:       url,
		opts:      opts,
		log:       logger,
		ctx:       runCtx,
		cancel:    cancel,
		done:      make(chan struct{}),
		onOpen:    listenable.New[struct{}](logger),
		onMessage: listenable.New[proto.Incoming](logger),
		onClose:   listenable.New[error](logger),
	}
	m.state.Store(int32(Connecting))

	go m.run(ctx)
	return m
}

// OnOpen is notified once the connection is established.
func (m *Manager) OnOpen() *listenable.Listenable[struct{}] { return m.onOpen }

// OnMessage is notified for every decoded server frame.
func (m *Manager) OnMessage() *listenable.Listenable[proto.Incoming] { return m.onMessage }

// OnClose is notified once when the connection ends without Disconnect being
// called. The error is nil for a normal closure.
func (m *Manager) OnClose() *listenable.Listenable[error] { return m.onClose }

// ReadyState reports the current connection state.
func (m *Manager) ReadyState() ReadyState {
	return ReadyState(m.state.Load())
}

// Done is closed when the connection goroutine has exited.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Err returns the error that ended the connection, if any. It is only
// meaningful after Done is closed.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Send writes frame as a JSON text message. It does not queue: callers have
// to wait for OnOpen.
func (m *Manager) Send(ctx context.Context, frame proto.Outgoing) error {
	if m.ReadyState() != Open {
		return ErrNotOpen
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotOpen
	}

	if err := wsjson.Write(ctx, conn, frame); err != nil {
		m.log.Warn().Err(err).Str("type", frame.FrameType()).Msg("ws write failed")
		return err
	}
	m.log.Debug().Str("type", frame.FrameType()).Msg("ws frame sent")
	return nil
}

// Disconnect closes the connection. No listener is called after it returns,
// apart from a delivery that was already running. Safe to call more than once.
func (m *Manager) Disconnect() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	conn := m.conn
	if conn != nil {
		m.state.Store(int32(Closing))
	}
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "disconnect"); err != nil {
			m.log.Debug().Err(err).Msg("ws close")
		}
	}
	m.cancel()
	m.state.Store(int32(Closed))
}

func (m *Manager) run(dialCtx context.Context) {
	defer close(m.done)
	defer m.cancel()

	ctx := m.ctx
	if m.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.DialTimeout)
		defer cancel()
	}
	// Cancelling the caller's context aborts the dial but not an open connection.
	stop := context.AfterFunc(dialCtx, m.cancel)

	conn, _, err := websocket.Dial(ctx, m.url, &websocket.DialOptions{
		HTTPClient: m.opts.HTTPClient,
		HTTPHeader: m.opts.Header,
	})
	stop()
	if err != nil {
		m.setErr(err)
		m.state.Store(int32(Closed))
		m.log.Warn().Err(err).Str("url", m.url).Msg("ws dial failed")
		m.emit(func() { m.onClose.Notify(err) })
		return
	}
	conn.SetReadLimit(m.opts.ReadLimit)

	m.mu.Lock()
	if m.stopped.Load() {
		m.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "disconnect")
		return
	}
	m.conn = conn
	m.state.Store(int32(Open))
	m.mu.Unlock()

	m.log.Info().Str("url", m.url).Msg("ws connected")
	m.emit(func() { m.onOpen.Notify(struct{}{}) })

	err = m.readLoop(conn)
	m.state.Store(int32(Closed))

	if m.stopped.Load() {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "closing")

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		err = nil
	}
	m.setErr(err)
	if err != nil {
		m.log.Warn().Err(err).Msg("ws connection closed with error")
	} else {
		m.log.Info().Msg("ws connection closed")
	}
	m.emit(func() { m.onClose.Notify(err) })
}

func (m *Manager) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(m.ctx)
		if err != nil {
			return err
		}

		in, err := proto.DecodeIncoming(data)
		if err != nil {
			m.log.Warn().Err(err).Msg("dropping ws frame")
			continue
		}
		if in.Error != nil {
			m.log.Warn().Str("code", in.Error.Code).Str("message", in.Error.Message).Msg("server reported error")
		}
		m.emit(func() { m.onMessage.Notify(in) })
	}
}

func (m *Manager) emit(fn func()) {
	if m.stopped.Load() {
		return
	}
	fn()
}
