package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/auth"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/proto"
)

// APIHandlers serves the account endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	requestError := core.StatusOf(core.FamilyRegister, core.KindRequestError)

	var req proto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		fail(c, http.StatusBadRequest, proto.Failed(requestError, ""), "invalid request body")
		return
	}

	token, err := h.authService.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		status := core.StatusOf(core.FamilyRegister, core.KindUserAlreadyExists)
		fail(c, http.StatusConflict, proto.Failed(status, ""), "user already exists")
		return
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		fail(c, http.StatusBadRequest, proto.Failed(requestError, ""), err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
		fail(c, http.StatusInternalServerError, proto.Failed(requestError, ""), "internal server error")
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user registered successfully")
	c.JSON(http.StatusCreated, proto.TokenResponse{Token: token})
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	requestError := core.StatusOf(core.FamilyLogin, core.KindRequestError)

	var req proto.CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		h.log.Debug().Err(err).Msg("invalid login request")
		fail(c, http.StatusBadRequest, proto.Failed(requestError, ""), "invalid request body")
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			status := core.StatusOf(core.FamilyLogin, core.KindInvalidCredentials)
			fail(c, http.StatusUnauthorized, proto.Failed(status, ""), "invalid credentials")
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		fail(c, http.StatusInternalServerError, proto.Failed(requestError, ""), "internal server error")
		return
	}

	h.log.Info().Str("username", req.Username).Msg("user logged in successfully")
	c.JSON(http.StatusOK, proto.TokenResponse{Token: token})
}

// Profile returns the authenticated user.
// GET /api/profile
func (h *APIHandlers) Profile(c *gin.Context) {
	uid, username, ok := currentUser(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		fail(c, http.StatusUnauthorized, proto.Failed(core.StatusOf(core.FamilyResource, core.KindNeedsAuthentication), ""), "unauthorized")
		return
	}

	c.JSON(http.StatusOK, proto.ProfileResponse{ID: uid, Username: username})
}
