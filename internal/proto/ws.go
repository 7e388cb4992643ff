package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeAuthentication = "authentication"
	TypeSubscribe      = "subscribe"

	TypeChannelCreated = "channelCreated"
	TypeMessageSent    = "messageSent"
	TypeError          = "error"
)

// ErrUnknownType is returned when a frame carries a type this side does not
// handle.
var ErrUnknownType = errors.New("unknown frame type")

// Outgoing is a frame the client sends to the server.
type Outgoing interface {
	FrameType() string
}

// AuthenticationFrame authenticates the socket with a bearer token.
type AuthenticationFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// FrameType implements Outgoing.
func (AuthenticationFrame) FrameType() string { return TypeAuthentication }

// SubscribeFrame selects the channel whose messages are pushed.
type SubscribeFrame struct {
	Type      string `json:"type"`
	ChannelID int64  `json:"channelId"`
}

// FrameType implements Outgoing.
func (SubscribeFrame) FrameType() string { return TypeSubscribe }

// Authentication builds an authentication frame.
func Authentication(token string) AuthenticationFrame {
	return AuthenticationFrame{Type: TypeAuthentication, Token: token}
}

// Subscribe builds a subscribe frame.
func Subscribe(channelID int64) SubscribeFrame {
	return SubscribeFrame{Type: TypeSubscribe, ChannelID: channelID}
}

// ChannelCreatedFrame is pushed when any user creates a channel.
type ChannelCreatedFrame struct {
	Type          string `json:"type"`
	ID            int64  `json:"id"`
	Owner         int64  `json:"owner"`
	OwnerUsername string `json:"ownerUsername"`
	Title         string `json:"title"`
}

// MessageSentFrame is pushed when a message is posted in the subscribed channel.
type MessageSentFrame struct {
	Type           string `json:"type"`
	ID             int64  `json:"id"`
	Sender         int64  `json:"sender"`
	SenderUsername string `json:"senderUsername"`
	Channel        int64  `json:"channel"`
	Content        string `json:"content"`
	SendDate       int64  `json:"sendDate"` // epoch milliseconds
}

// ErrorFrame reports a protocol-level problem with a client frame.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Incoming is a decoded server frame. Exactly one of the pointers matching
// Type is set.
type Incoming struct {
	Type           string
	ChannelCreated *ChannelCreatedFrame
	MessageSent    *MessageSentFrame
	Error          *ErrorFrame
}

type typeProbe struct {
	Type string `json:"type"`
}

// DecodeIncoming parses a server frame.
func DecodeIncoming(data []byte) (Incoming, error) {
	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return Incoming{}, fmt.Errorf("decode frame type: %w", err)
	}

	in := Incoming{Type: probe.Type}
	var err error
	switch probe.Type {
	case TypeChannelCreated:
		in.ChannelCreated = &ChannelCreatedFrame{}
		err = json.Unmarshal(data, in.ChannelCreated)
	case TypeMessageSent:
		in.MessageSent = &MessageSentFrame{}
		err = json.Unmarshal(data, in.MessageSent)
	case TypeError:
		in.Error = &ErrorFrame{}
		err = json.Unmarshal(data, in.Error)
	default:
		return in, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}
	if err != nil {
		return in, fmt.Errorf("decode %s frame: %w", probe.Type, err)
	}
	return in, nil
}

// DecodeOutgoing parses a client frame on the server side.
func DecodeOutgoing(data []byte) (Outgoing, error) {
	var probe typeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode frame type: %w", err)
	}

	switch probe.Type {
	case TypeAuthentication:
		var f AuthenticationFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode authentication frame: %w", err)
		}
		return f, nil
	case TypeSubscribe:
		var f SubscribeFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode subscribe frame: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, probe.Type)
	}
}
