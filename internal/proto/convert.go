package proto

import (
	"time"

	"github.com/vovakirdan/channelchat/internal/core"
)

// Channel converts a REST channel entry.
func (c ChannelData) Channel() core.Channel {
	return core.Channel{
		ID:            c.ID,
		OwnerID:       c.Owner,
		OwnerUsername: c.OwnerUsername,
		Title:         c.Title,
	}
}

// Message converts a REST message entry. REST entries do not carry their
// channel, so the caller provides it.
func (m MessageData) Message(channelID int64) core.Message {
	return core.Message{
		ID:             m.ID,
		Content:        m.Content,
		SenderID:       m.Sender,
		SenderUsername: m.SenderUsername,
		ChannelID:      channelID,
		SendDate:       time.UnixMilli(m.SendDate),
	}
}

// Channel converts a channelCreated push.
func (f ChannelCreatedFrame) Channel() core.Channel {
	return core.Channel{
		ID:            f.ID,
		OwnerID:       f.Owner,
		OwnerUsername: f.OwnerUsername,
		Title:         f.Title,
	}
}

// Message converts a messageSent push.
func (f MessageSentFrame) Message() core.Message {
	return core.Message{
		ID:             f.ID,
		Content:        f.Content,
		SenderID:       f.Sender,
		SenderUsername: f.SenderUsername,
		ChannelID:      f.Channel,
		SendDate:       time.UnixMilli(f.SendDate),
	}
}

// NewChannelData builds the REST form of a channel.
func NewChannelData(c core.Channel) ChannelData {
	return ChannelData{
		ID:            c.ID,
		Owner:         c.OwnerID,
		OwnerUsername: c.OwnerUsername,
		Title:         c.Title,
	}
}

// NewMessageData builds the REST form of a message.
func NewMessageData(m core.Message) MessageData {
	return MessageData{
		ID:             m.ID,
		Content:        m.Content,
		Sender:         m.SenderID,
		SenderUsername: m.SenderUsername,
		SendDate:       m.SendDate.UnixMilli(),
	}
}

// ChannelCreated builds the push frame for a new channel.
func ChannelCreated(c core.Channel) ChannelCreatedFrame {
	return ChannelCreatedFrame{
		Type:          TypeChannelCreated,
		ID:            c.ID,
		Owner:         c.OwnerID,
		OwnerUsername: c.OwnerUsername,
		Title:         c.Title,
	}
}

// MessageSent builds the push frame for a new message.
func MessageSent(m core.Message) MessageSentFrame {
	return MessageSentFrame{
		Type:           TypeMessageSent,
		ID:             m.ID,
		Sender:         m.SenderID,
		SenderUsername: m.SenderUsername,
		Channel:        m.ChannelID,
		Content:        m.Content,
		SendDate:       m.SendDate.UnixMilli(),
	}
}

// ProtocolError builds an error frame.
func ProtocolError(code, message string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Code: code, Message: message}
}
