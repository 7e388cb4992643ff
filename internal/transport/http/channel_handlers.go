package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/proto"
	"github.com/vovakirdan/channelchat/internal/store"
)

const maxTitleLength = 64

// ChannelHandlers serves the channel endpoints.
type ChannelHandlers struct {
	store store.ChannelStore
	hub   Hub
	log   *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(st store.ChannelStore, h Hub, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{
		store: st,
		hub:   h,
		log:   logger,
	}
}

// ListChannels returns every channel in creation order.
// GET /api/channels
func (h *ChannelHandlers) ListChannels(c *gin.Context) {
	channels, err := h.store.ListChannels(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list channels")
		fail(c, http.StatusInternalServerError, proto.Failed(core.StatusOf(core.FamilyResource, core.KindRequestError), ""), "internal server error")
		return
	}

	response := make([]proto.ChannelData, 0, len(channels))
	for _, ch := range channels {
		response = append(response, proto.NewChannelData(channelFromStore(ch)))
	}

	h.log.Debug().Int("channel_count", len(response)).Msg("channels listed successfully")
	c.JSON(http.StatusOK, proto.ChannelsResponse{Channels: response})
}

// CreateChannel creates a channel owned by the caller and announces it to
// every connected client.
// POST /api/channels
func (h *ChannelHandlers) CreateChannel(c *gin.Context) {
	requestError := proto.Failed(core.StatusOf(core.FamilyResource, core.KindRequestError), "")

	uid, _, ok := currentUser(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		fail(c, http.StatusUnauthorized, proto.Failed(core.StatusOf(core.FamilyResource, core.KindNeedsAuthentication), ""), "unauthorized")
		return
	}

	var req proto.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		fail(c, http.StatusBadRequest, requestError, "invalid request body")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLength {
		fail(c, http.StatusBadRequest, requestError, "title must be between 1 and 64 characters")
		return
	}

	ch, err := h.store.CreateChannel(c.Request.Context(), title, uid)
	if err != nil {
		h.log.Error().Err(err).Str("title", title).Msg("failed to create channel")
		fail(c, http.StatusInternalServerError, requestError, "internal server error")
		return
	}

	h.log.Info().Str("title", ch.Title).Int64("channel_id", ch.ID).Int64("owner_id", uid).Msg("channel created successfully")
	h.hub.PublishChannelCreated(channelFromStore(ch))
	c.JSON(http.StatusCreated, proto.ChannelCreatedResponse{ChannelID: ch.ID})
}
