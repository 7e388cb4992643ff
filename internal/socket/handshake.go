package socket

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/proto"
)

// Phase is the progress of the authenticate then subscribe sequence.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseAuthenticating
	PhaseSubscribed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}

// Sender writes frames to the server.
type Sender interface {
	Send(ctx context.Context, frame proto.Outgoing) error
}

// Handshake sends authentication exactly once after the socket opens and keeps
// the server subscribed to the selected channel.
type Handshake struct {
	mu      sync.Mutex
	sender  Sender
	token   string
	phase   Phase
	channel int64
	hasChan bool
	log     *zerolog.Logger
}

// NewHandshake returns a handshake waiting for the socket to open.
func NewHandshake(sender Sender, token string, logger *zerolog.Logger) *Handshake {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Handshake{
		sender: sender,
		token:  token,
		phase:  PhaseConnecting,
		log:    logger,
	}
}

// Attach creates a handshake driven by m's open and close events.
func Attach(ctx context.Context, m *Manager, token string, logger *zerolog.Logger) *Handshake {
	h := NewHandshake(m, token, logger)

	openID := m.OnOpen().Once(func(struct{}) {
		if err := h.Opened(ctx); err != nil {
			h.log.Warn().Err(err).Msg("handshake failed")
		}
	})
	closeID := m.OnClose().Once(func(error) { h.Closed() })

	// The socket may have changed state before the listeners were registered.
	switch m.ReadyState() {
	case Open:
		m.OnOpen().Remove(openID)
		if err := h.Opened(ctx); err != nil {
			h.log.Warn().Err(err).Msg("handshake failed")
		}
	case Closing, Closed:
		m.OnOpen().Remove(openID)
		m.OnClose().Remove(closeID)
		h.Closed()
	}
	return h
}

// Phase reports the current handshake phase.
func (h *Handshake) Phase() Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

// Channel returns the selected channel, if any.
func (h *Handshake) Channel() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.channel, h.hasChan
}

// Opened authenticates and subscribes to the selected channel. It only acts
// in the connecting state, so calling it again never re-authenticates.
func (h *Handshake) Opened(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase != PhaseConnecting {
		return nil
	}
	if err := h.sender.Send(ctx, proto.Authentication(h.token)); err != nil {
		return err
	}
	h.phase = PhaseAuthenticating
	h.log.Debug().Msg("authentication sent")

	if h.hasChan {
		return h.subscribeLocked(ctx)
	}
	return nil
}

// Select makes channelID the active channel. Once authenticated the
// subscription is sent right away, otherwise it waits for Opened.
func (h *Handshake) Select(ctx context.Context, channelID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase == PhaseSubscribed && h.hasChan && h.channel == channelID {
		return nil
	}
	h.channel = channelID
	h.hasChan = true

	switch h.phase {
	case PhaseAuthenticating, PhaseSubscribed:
		return h.subscribeLocked(ctx)
	default:
		return nil
	}
}

// Closed marks the handshake as finished. Later calls do nothing.
func (h *Handshake) Closed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = PhaseDisconnected
}

func (h *Handshake) subscribeLocked(ctx context.Context) error {
	if err := h.sender.Send(ctx, proto.Subscribe(h.channel)); err != nil {
		return err
	}
	h.phase = PhaseSubscribed
	h.log.Debug().Int64("channel_id", h.channel).Msg("subscribed")
	return nil
}
