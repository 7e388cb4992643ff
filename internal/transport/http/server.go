package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/auth"
	"github.com/vovakirdan/channelchat/internal/config"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/hub"
	"github.com/vovakirdan/channelchat/internal/metrics"
	"github.com/vovakirdan/channelchat/internal/store"
)

// Hub is the part of the push hub the transport needs.
type Hub interface {
	RegisterClient(c *hub.Client)
	UnregisterClient(c *hub.Client)
	PublishChannelCreated(ch core.Channel)
	PublishMessage(msg core.Message)
}

// NewServer builds the HTTP server: REST routes under /api, the push socket
// on /ws, /health and /metrics.
func NewServer(h Hub, authService *auth.Service, st store.Store, cfg *config.ServerConfig, logger *zerolog.Logger, m *metrics.Metrics) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(h, authService, st, cfg, logger, m),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine serving every route.
func NewRouter(h Hub, authService *auth.Service, st store.Store, cfg *config.ServerConfig, logger *zerolog.Logger, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger, m))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", gin.WrapH(NewWSHandler(h, authService, cfg, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	channelHandlers := NewChannelHandlers(st, h, logger)
	messageHandlers := NewMessageHandlers(st, h, cfg, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(authService, logger))
	protected.GET("/profile", apiHandlers.Profile)
	protected.GET("/channels", channelHandlers.ListChannels)
	protected.POST("/channels", channelHandlers.CreateChannel)
	protected.GET("/messages/:channelId", messageHandlers.ListMessages)
	protected.POST("/messages/:channelId", messageHandlers.SendMessage)

	return router
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
