package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/auth"
	"github.com/vovakirdan/channelchat/internal/config"
	"github.com/vovakirdan/channelchat/internal/hub"
	"github.com/vovakirdan/channelchat/internal/proto"
)

const (
	wsReadLimit   = 64 << 10
	rateWindow    = time.Minute
	writeDeadline = 10 * time.Second
)

// WSHandler upgrades HTTP connections and bridges them to hub.Client.
type WSHandler struct {
	hub        Hub
	auth       *auth.Service
	frameLimit int
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(h Hub, authService *auth.Service, cfg *config.ServerConfig, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: h, auth: authService, frameLimit: cfg.WSFramesPerMinute, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	conn.SetReadLimit(wsReadLimit)

	client := hub.NewClient()
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.frameLimit, rateWindow)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client, limiter *rateLimiter) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var cmd *hub.Command
		if !limiter.allow() {
			cmd = reject(hub.ErrCodeBadRequest, "rate limit exceeded")
		} else if frame, decodeErr := proto.DecodeOutgoing(data); decodeErr != nil {
			h.log.Debug().Err(decodeErr).Str("client_id", client.ID).Msg("rejecting ws frame")
			cmd = decodeError(decodeErr)
		} else {
			cmd = frameToCommand(frame, func(token string) (int64, string, error) {
				user, err := h.auth.Authenticate(ctx, token)
				if err != nil {
					h.log.Debug().Err(err).Str("client_id", client.ID).Msg("ws authentication failed")
					return 0, "", err
				}
				return user.ID, user.Username, nil
			})
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeDeadline)
			err := wsjson.Write(writeCtx, conn, event.Frame())
			cancel()
			if err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
