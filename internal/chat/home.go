package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/listenable"
	"github.com/vovakirdan/channelchat/internal/proto"
	"github.com/vovakirdan/channelchat/internal/session"
	"github.com/vovakirdan/channelchat/internal/socket"
)

var (
	// ErrNotLoggedIn is returned when the session holds no credential.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNoChannel is returned by SendMessage before a channel is selected.
	ErrNoChannel = errors.New("no channel selected")
	// ErrClosed is returned by operations on a closed Home.
	ErrClosed = errors.New("chat closed")
)

// API is the part of the REST client the chat page uses.
type API interface {
	FetchChannels(ctx context.Context, token string) ([]core.Channel, error)
	AddChannel(ctx context.Context, token, title string) (int64, error)
	FetchMessages(ctx context.Context, token string, channelID int64) ([]core.Message, error)
	SendMessage(ctx context.Context, token string, channelID int64, content string) (int64, error)
}

// Options configures a Home.
type Options struct {
	WSURL  string
	Socket socket.Options
	Logger *zerolog.Logger
}

// Home is the logged in chat page. It owns the push socket for the lifetime
// of one session and keeps the channel and message lists current.
type Home struct {
	api     API
	session *session.Manager
	opts    Options
	log     *zerolog.Logger

	channels *ChannelList
	messages *MessageList

	mu        sync.Mutex
	cred      *core.Credential
	socket    *socket.Manager
	handshake *socket.Handshake
	started   bool
	closed    bool
	sessionID listenable.ID
	messageID listenable.ID

	done chan struct{}
}

// NewHome creates a chat page for the current session of sm.
func NewHome(api API, sm *session.Manager, opts Options) *Home {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Home{
		api:      api,
		session:  sm,
		opts:     opts,
		log:      logger,
		channels: NewChannelList(logger),
		messages: NewMessageList(logger),
		done:     make(chan struct{}),
	}
}

// Channels returns the channel list.
func (h *Home) Channels() *ChannelList { return h.channels }

// Messages returns the message list of the selected channel.
func (h *Home) Messages() *MessageList { return h.messages }

// Done is closed when the Home is closed, either explicitly or because the
// session ended.
func (h *Home) Done() <-chan struct{} { return h.done }

// Socket returns the push connection, nil before Start.
func (h *Home) Socket() *socket.Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.socket
}

// Handshake returns the socket handshake, nil before Start.
func (h *Home) Handshake() *socket.Handshake {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handshake
}

// IsOwn reports whether msg was sent by the logged in user.
func (h *Home) IsOwn(msg core.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cred != nil && h.cred.UserID == msg.SenderID
}

// Start opens the push socket and loads the channel list.
func (h *Home) Start(ctx context.Context) error {
	cred := h.session.Store().Credential()
	if cred == nil {
		return ErrNotLoggedIn
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.cred = cred

	h.sessionID = h.session.Store().Listeners().Add(func(c *core.Credential) {
		if c == nil || c.Token != cred.Token {
			h.log.Info().Msg("session ended, closing chat")
			h.Close()
		}
	})

	h.socket = socket.Dial(ctx, h.opts.WSURL, h.opts.Socket)
	h.messageID = h.socket.OnMessage().Add(h.handleFrame)
	h.handshake = socket.Attach(ctx, h.socket, cred.Token, h.log)
	h.mu.Unlock()

	channels, err := h.api.FetchChannels(ctx, cred.Token)
	if err != nil {
		h.abortStart()
		return err
	}
	h.channels.Load(channels)
	h.log.Debug().Int("count", len(channels)).Msg("channels loaded")
	return nil
}

// Select opens channelID: the server is asked to push its messages, then its
// history is fetched and merged with anything pushed in the meantime.
func (h *Home) Select(ctx context.Context, channelID int64) error {
	cred, hs, err := h.current()
	if err != nil {
		return err
	}

	h.messages.Reset(channelID)
	if err := hs.Select(ctx, channelID); err != nil {
		h.log.Warn().Err(err).Int64("channel_id", channelID).Msg("subscribe failed")
	}

	messages, err := h.api.FetchMessages(ctx, cred.Token, channelID)
	if err != nil {
		return err
	}
	if !h.messages.Load(channelID, messages) {
		h.log.Debug().Int64("channel_id", channelID).Msg("dropping messages of a channel no longer open")
	}
	return nil
}

// AddChannel creates a channel. It shows up in the list when the server
// pushes it back.
func (h *Home) AddChannel(ctx context.Context, title string) (int64, error) {
	cred, _, err := h.current()
	if err != nil {
		return 0, err
	}
	return h.api.AddChannel(ctx, cred.Token, title)
}

// SendMessage posts content to the selected channel.
func (h *Home) SendMessage(ctx context.Context, content string) (int64, error) {
	cred, _, err := h.current()
	if err != nil {
		return 0, err
	}
	channelID, ok := h.messages.Channel()
	if !ok {
		return 0, ErrNoChannel
	}
	return h.api.SendMessage(ctx, cred.Token, channelID, content)
}

// Close detaches from the session, closes the lists and disconnects the
// socket. Safe to call more than once.
func (h *Home) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	sock, hs := h.socket, h.handshake
	if h.started {
		h.session.Store().Listeners().Remove(h.sessionID)
		sock.OnMessage().Remove(h.messageID)
	}
	h.mu.Unlock()

	h.channels.close()
	h.messages.close()
	if sock != nil {
		sock.Disconnect()
	}
	if hs != nil {
		hs.Closed()
	}
	close(h.done)
}

// abortStart undoes a Start whose initial load failed so that the next
// Start begins from scratch.
func (h *Home) abortStart() {
	h.mu.Lock()
	if h.closed || !h.started {
		h.mu.Unlock()
		return
	}
	sock, hs := h.socket, h.handshake
	h.session.Store().Listeners().Remove(h.sessionID)
	sock.OnMessage().Remove(h.messageID)
	h.socket, h.handshake, h.cred = nil, nil, nil
	h.started = false
	h.mu.Unlock()

	sock.Disconnect()
	hs.Closed()
}

func (h *Home) current() (*core.Credential, *socket.Handshake, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, nil, ErrClosed
	}
	if !h.started || h.cred == nil {
		return nil, nil, ErrNotLoggedIn
	}
	return h.cred, h.handshake, nil
}

func (h *Home) handleFrame(in proto.Incoming) {
	switch {
	case in.ChannelCreated != nil:
		ch := in.ChannelCreated.Channel()
		if h.channels.Append(ch) {
			h.log.Debug().Int64("channel_id", ch.ID).Msg("channel pushed")
		}
	case in.MessageSent != nil:
		msg := in.MessageSent.Message()
		if h.messages.Append(msg) {
			h.log.Debug().Int64("message_id", msg.ID).Int64("channel_id", msg.ChannelID).Msg("message pushed")
		}
	}
}
