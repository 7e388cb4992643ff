package hub

import "github.com/google/uuid"

// Client is one WebSocket connection as seen by the hub. Commands are read by
// the hub; Events is closed by the hub once the client is unregistered.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	// Owned by the hub goroutine.
	userID        int64
	username      string
	authenticated bool
	channelID     int64
	subscribed    bool
	quit          chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient() *Client {
	return &Client{
		ID:       uuid.NewString(),
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		quit:     make(chan struct{}),
	}
}
