package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/auth"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/metrics"
	"github.com/vovakirdan/channelchat/internal/proto"
)

const (
	// ContextKeyUserID is the context key for storing user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the context key for storing username.
	ContextKeyUsername = "username"
)

// AuthMiddleware validates the bearer token and stores the user in the
// context. Failures answer with the needsAuthentication status.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	unauthorized := proto.Failed(core.StatusOf(core.FamilyResource, core.KindNeedsAuthentication), "")

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			fail(c, http.StatusUnauthorized, unauthorized, "missing authorization header")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			fail(c, http.StatusUnauthorized, unauthorized, "invalid authorization header format")
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			fail(c, http.StatusUnauthorized, unauthorized, "invalid token")
			return
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUsername, user.Username)

		c.Next()
	}
}

// LoggerMiddleware logs every request and records it in m.
func LoggerMiddleware(logger *zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), elapsed)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", elapsed).
			Msg("http request")
	}
}

// fail aborts the request with a failure envelope.
func fail(c *gin.Context, code int, env proto.Envelope, message string) {
	env.Message = message
	c.AbortWithStatusJSON(code, env)
}

// currentUser reads what AuthMiddleware stored.
func currentUser(c *gin.Context) (int64, string, bool) {
	id, ok := c.Get(ContextKeyUserID)
	if !ok {
		return 0, "", false
	}
	uid, ok := id.(int64)
	if !ok {
		return 0, "", false
	}
	return uid, c.GetString(ContextKeyUsername), true
}
