package http

import (
	"errors"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/hub"
	"github.com/vovakirdan/channelchat/internal/proto"
	"github.com/vovakirdan/channelchat/internal/store"
)

func channelFromStore(ch *store.Channel) core.Channel {
	return core.Channel{
		ID:            ch.ID,
		OwnerID:       ch.OwnerID,
		OwnerUsername: ch.OwnerUsername,
		Title:         ch.Title,
	}
}

func messageFromStore(msg *store.Message) core.Message {
	return core.Message{
		ID:             msg.ID,
		Content:        msg.Body,
		SenderID:       msg.UserID,
		SenderUsername: msg.SenderUsername,
		ChannelID:      msg.ChannelID,
		SendDate:       msg.SentAt,
	}
}

// frameToCommand maps a decoded client frame to a hub command. Tokens are
// validated by the caller through authenticate.
func frameToCommand(frame proto.Outgoing, authenticate func(token string) (int64, string, error)) *hub.Command {
	switch f := frame.(type) {
	case proto.AuthenticationFrame:
		if f.Token == "" {
			return reject(hub.ErrCodeBadRequest, "token is required")
		}
		userID, username, err := authenticate(f.Token)
		if err != nil {
			return reject(hub.ErrCodeUnauthorized, "invalid token")
		}
		return &hub.Command{Kind: hub.CommandAuthenticate, UserID: userID, Username: username}
	case proto.SubscribeFrame:
		if f.ChannelID <= 0 {
			return reject(hub.ErrCodeBadRequest, "channelId is required")
		}
		return &hub.Command{Kind: hub.CommandSubscribe, ChannelID: f.ChannelID}
	default:
		return reject(hub.ErrCodeBadRequest, "unknown message type")
	}
}

// decodeError maps a frame decoding failure to a hub command.
func decodeError(err error) *hub.Command {
	if errors.Is(err, proto.ErrUnknownType) {
		return reject(hub.ErrCodeBadRequest, "unknown message type")
	}
	return reject(hub.ErrCodeBadRequest, "malformed frame")
}

func reject(code, message string) *hub.Command {
	return &hub.Command{Kind: hub.CommandReject, Error: &hub.Error{Code: code, Message: message}}
}
