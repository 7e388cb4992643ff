// Package hub fans push events out to WebSocket clients of the reference
// server.
package hub

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/metrics"
	"github.com/vovakirdan/channelchat/internal/store"
)

const lookupTimeout = 2 * time.Second

type clientCommand struct {
	client *Client
	cmd    *Command
}

// Hub owns every connected client. All client state is touched only by the
// goroutine running Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	commands   chan clientCommand
	publish    chan *Event
	done       chan struct{}

	clients map[*Client]struct{}
	rooms   map[int64]*Room

	channels store.ChannelStore
	log      *zerolog.Logger
	metrics  *metrics.Metrics
}

// NewHub creates a hub. channels may be nil, in which case subscriptions are
// not checked against existing channels.
func NewHub(channels store.ChannelStore, logger *zerolog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan clientCommand, 64),
		publish:    make(chan *Event, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[int64]*Room),
		channels:   channels,
		log:        logger,
		metrics:    m,
	}
}

// Run processes registrations, commands and published events until ctx is
// done. Remaining clients are then unregistered.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.metrics.ConnectionOpened()
			go h.pump(ctx, c)
			h.log.Debug().Str("client_id", c.ID).Msg("client registered")
		case c := <-h.unregister:
			h.drop(c)
		case cc := <-h.commands:
			if _, ok := h.clients[cc.client]; ok {
				h.handle(ctx, cc.client, cc.cmd)
			}
		case ev := <-h.publish:
			h.broadcast(ev)
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

// RegisterClient adds c to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Events)
	}
}

// UnregisterClient removes c and closes its Events channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// PublishChannelCreated pushes ch to every authenticated client.
func (h *Hub) PublishChannelCreated(ch core.Channel) {
	h.enqueue(&Event{Kind: EventChannelCreated, Channel: ch})
}

// PublishMessage pushes msg to the clients subscribed to its channel.
func (h *Hub) PublishMessage(msg core.Message) {
	h.enqueue(&Event{Kind: EventMessageSent, Message: msg})
}

func (h *Hub) enqueue(ev *Event) {
	select {
	case h.publish <- ev:
	case <-h.done:
	}
}

// pump forwards the commands of one client to the hub goroutine.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.quit:
				return
			case <-ctx.Done():
				return
			}
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.leave(c)
	if c.authenticated {
		h.metrics.AuthenticatedClosed()
	}
	delete(h.clients, c)
	close(c.quit)
	close(c.Events)
	h.metrics.ConnectionClosed()
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandAuthenticate:
		if !c.authenticated {
			h.metrics.Authenticated()
		}
		c.userID = cmd.UserID
		c.username = cmd.Username
		c.authenticated = true
		h.log.Info().Str("client_id", c.ID).Int64("user_id", c.userID).Msg("client authenticated")

	case CommandSubscribe:
		if !c.authenticated {
			h.reject(c, ErrCodeUnauthorized, "authenticate before subscribing")
			return
		}
		if err := h.lookup(ctx, cmd.ChannelID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				h.reject(c, ErrCodeChannelNotFound, "channel does not exist")
			} else {
				h.log.Error().Err(err).Int64("channel_id", cmd.ChannelID).Msg("channel lookup failed")
				h.reject(c, ErrCodeInternal, "could not subscribe")
			}
			return
		}
		h.leave(c)
		room, ok := h.rooms[cmd.ChannelID]
		if !ok {
			room = NewRoom(cmd.ChannelID)
			h.rooms[cmd.ChannelID] = room
		}
		room.AddClient(c)
		c.channelID = cmd.ChannelID
		c.subscribed = true
		h.log.Debug().Str("client_id", c.ID).Int64("channel_id", cmd.ChannelID).Msg("client subscribed")

	case CommandReject:
		if cmd.Error != nil {
			h.reject(c, cmd.Error.Code, cmd.Error.Message)
		}

	default:
		h.reject(c, ErrCodeBadRequest, "unsupported command")
	}
}

func (h *Hub) lookup(ctx context.Context, channelID int64) error {
	if h.channels == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	_, err := h.channels.GetChannelByID(ctx, channelID)
	return err
}

func (h *Hub) leave(c *Client) {
	if !c.subscribed {
		return
	}
	if room, ok := h.rooms[c.channelID]; ok {
		room.RemoveClient(c)
		if room.Empty() {
			delete(h.rooms, c.channelID)
		}
	}
	c.subscribed = false
}

func (h *Hub) reject(c *Client, code, message string) {
	h.deliver(c, &Event{Kind: EventError, Error: &Error{Code: code, Message: message}})
}

func (h *Hub) broadcast(ev *Event) {
	switch ev.Kind {
	case EventChannelCreated:
		for c := range h.clients {
			if c.authenticated {
				h.deliver(c, ev)
			}
		}
	case EventMessageSent:
		room, ok := h.rooms[ev.Message.ChannelID]
		if !ok {
			return
		}
		for c := range room.clients {
			h.deliver(c, ev)
		}
	}
}

func (h *Hub) deliver(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
		h.metrics.FramePushed(ev.frameType())
	default:
		// Drop if slow consumer.
		h.metrics.FrameDropped()
		h.log.Warn().Str("client_id", c.ID).Msg("dropping event for slow client")
	}
}
