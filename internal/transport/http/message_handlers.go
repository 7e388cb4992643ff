package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/config"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/proto"
	"github.com/vovakirdan/channelchat/internal/store"
)

// MessageHandlers serves the message endpoints.
type MessageHandlers struct {
	store           store.Store
	hub             Hub
	maxMessageBytes int64
	historyLimit    int
	log             *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, h Hub, cfg *config.ServerConfig, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store:           st,
		hub:             h,
		maxMessageBytes: cfg.MaxMessageBytes,
		historyLimit:    cfg.HistoryLimit,
		log:             logger,
	}
}

// ListMessages returns the latest messages of a channel, oldest first.
// GET /api/messages/:channelId
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	requestError := proto.Failed(core.StatusOf(core.FamilyResource, core.KindRequestError), "")

	channelID, ok := h.channel(c, requestError)
	if !ok {
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), channelID, h.historyLimit)
	if err != nil {
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to list messages")
		fail(c, http.StatusInternalServerError, requestError, "internal server error")
		return
	}

	response := make([]proto.MessageData, 0, len(messages))
	for _, msg := range messages {
		response = append(response, proto.NewMessageData(messageFromStore(msg)))
	}

	c.JSON(http.StatusOK, proto.MessagesResponse{Messages: response})
}

// SendMessage stores a message and pushes it to the channel's subscribers.
// POST /api/messages/:channelId
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	requestError := proto.Failed(core.StatusOf(core.FamilyMessageSend, core.KindRequestError), "")

	uid, _, ok := currentUser(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		fail(c, http.StatusUnauthorized, proto.Failed(core.StatusOf(core.FamilyMessageSend, core.KindNeedsAuthentication), ""), "unauthorized")
		return
	}

	channelID, ok := h.channel(c, requestError)
	if !ok {
		return
	}

	var req proto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		fail(c, http.StatusBadRequest, requestError, "invalid request body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" || (h.maxMessageBytes > 0 && int64(len(content)) > h.maxMessageBytes) {
		fail(c, http.StatusBadRequest, requestError, "content is empty or too long")
		return
	}

	msg := &store.Message{
		ChannelID: channelID,
		UserID:    uid,
		Body:      content,
		SentAt:    time.Now(),
	}
	if err := h.store.SaveMessage(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to save message")
		status := core.StatusOf(core.FamilyMessageSend, core.KindCreationError)
		fail(c, http.StatusInternalServerError, proto.Failed(status, ""), "could not store message")
		return
	}

	h.log.Debug().Int64("channel_id", channelID).Int64("message_id", msg.ID).Msg("message stored")
	h.hub.PublishMessage(messageFromStore(msg))
	c.JSON(http.StatusCreated, proto.MessageSentResponse{MessageID: msg.ID})
}

// channel parses :channelId and checks that the channel exists.
func (h *MessageHandlers) channel(c *gin.Context, requestError proto.Envelope) (int64, bool) {
	channelID, err := strconv.ParseInt(c.Param("channelId"), 10, 64)
	if err != nil || channelID <= 0 {
		fail(c, http.StatusBadRequest, requestError, "invalid channel id")
		return 0, false
	}

	if _, err := h.store.GetChannelByID(c.Request.Context(), channelID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fail(c, http.StatusNotFound, requestError, "channel not found")
			return 0, false
		}
		h.log.Error().Err(err).Int64("channel_id", channelID).Msg("failed to load channel")
		fail(c, http.StatusInternalServerError, requestError, "internal server error")
		return 0, false
	}
	return channelID, true
}
