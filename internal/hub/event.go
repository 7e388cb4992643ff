package hub

import (
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/proto"
)

// EventKind is a notification the hub emits to clients.
type EventKind int

const (
	// EventChannelCreated announces a new channel to every authenticated client.
	EventChannelCreated EventKind = iota
	// EventMessageSent delivers a message to clients subscribed to its channel.
	EventMessageSent
	// EventError notifies a single client about a rejected frame.
	EventError
)

// Error codes sent in error frames.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeInternal        = "internal_error"
)

// Error describes why a client frame was rejected.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Channel core.Channel
	Message core.Message
	Error   *Error
}

// Frame converts the event to the frame written on the wire.
func (e *Event) Frame() any {
	switch e.Kind {
	case EventChannelCreated:
		return proto.ChannelCreated(e.Channel)
	case EventMessageSent:
		return proto.MessageSent(e.Message)
	default:
		if e.Error == nil {
			return proto.ProtocolError(ErrCodeInternal, "unknown event")
		}
		return proto.ProtocolError(e.Error.Code, e.Error.Message)
	}
}

func (e *Event) frameType() string {
	switch e.Kind {
	case EventChannelCreated:
		return proto.TypeChannelCreated
	case EventMessageSent:
		return proto.TypeMessageSent
	default:
		return proto.TypeError
	}
}
