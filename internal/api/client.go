// Package api wraps the chat backend REST endpoints. Every call returns either
// its value or a *core.Failure; transport and decoding problems surface as the
// endpoint's generic request error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/proto"
)

const defaultTimeout = 10 * time.Second

// Options tunes a Client.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zerolog.Logger
}

// Client talks to the REST API rooted at a base URL such as
// "https://chat.example.com/api".
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zerolog.Logger
}

// New creates a Client for baseURL.
func New(baseURL string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        logger,
	}
}

type enveloped interface {
	Head() proto.Envelope
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var resp proto.TokenResponse
	body := proto.CredentialsRequest{Username: username, Password: password}
	if err := c.do(ctx, "register", core.FamilyRegister, http.MethodPost, "/register", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp proto.TokenResponse
	body := proto.CredentialsRequest{Username: username, Password: password}
	if err := c.do(ctx, "login", core.FamilyLogin, http.MethodPost, "/login", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Profile fetches the user the token belongs to.
func (c *Client) Profile(ctx context.Context, token string) (core.User, error) {
	var resp proto.ProfileResponse
	if err := c.do(ctx, "profile", core.FamilyResource, http.MethodGet, "/profile", token, nil, &resp); err != nil {
		return core.User{}, err
	}
	return core.User{ID: resp.ID, Username: resp.Username}, nil
}

// FetchChannels lists every channel.
func (c *Client) FetchChannels(ctx context.Context, token string) ([]core.Channel, error) {
	var resp proto.ChannelsResponse
	if err := c.do(ctx, "fetch channels", core.FamilyResource, http.MethodGet, "/channels", token, nil, &resp); err != nil {
		return nil, err
	}

	channels := make([]core.Channel, 0, len(resp.Channels))
	for _, ch := range resp.Channels {
		channels = append(channels, ch.Channel())
	}
	return channels, nil
}

// AddChannel creates a channel and returns its id.
func (c *Client) AddChannel(ctx context.Context, token, title string) (int64, error) {
	var resp proto.ChannelCreatedResponse
	body := proto.CreateChannelRequest{Title: title}
	if err := c.do(ctx, "add channel", core.FamilyResource, http.MethodPost, "/channels", token, body, &resp); err != nil {
		return 0, err
	}
	return resp.ChannelID, nil
}

// FetchMessages lists the messages of a channel, oldest first.
func (c *Client) FetchMessages(ctx context.Context, token string, channelID int64) ([]core.Message, error) {
	var resp proto.MessagesResponse
	path := "/messages/" + strconv.FormatInt(channelID, 10)
	if err := c.do(ctx, "fetch messages", core.FamilyResource, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}

	messages := make([]core.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, m.Message(channelID))
	}
	return messages, nil
}

// SendMessage posts content to a channel and returns the message id.
func (c *Client) SendMessage(ctx context.Context, token string, channelID int64, content string) (int64, error) {
	var resp proto.MessageSentResponse
	path := "/messages/" + strconv.FormatInt(channelID, 10)
	body := proto.SendMessageRequest{Content: content}
	if err := c.do(ctx, "send message", core.FamilyMessageSend, http.MethodPost, path, token, body, &resp); err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

func (c *Client) do(ctx context.Context, op string, family core.Family, method, path, token string, body any, out enveloped) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return core.RequestFailure(op, family, fmt.Errorf("marshal request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return core.RequestFailure(op, family, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("op", op).Msg("api request failed")
		return core.RequestFailure(op, family, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.RequestFailure(op, family, fmt.Errorf("read response: %w", err))
	}

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return core.NewFailure(op, family, core.StatusOf(family, core.KindNeedsAuthentication), http.StatusText(resp.StatusCode))
		}
		c.log.Debug().Err(err).Str("op", op).Int("http_status", resp.StatusCode).Msg("undecodable api response")
		return core.RequestFailure(op, family, fmt.Errorf("decode response: %w", err))
	}

	head := out.Head()
	if head.Error {
		c.log.Debug().Str("op", op).Int("status", head.Status).Str("message", head.Message).Msg("api reported failure")
		return core.NewFailure(op, family, head.Status, head.Message)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return core.RequestFailure(op, family, errors.New(resp.Status))
	}
	return nil
}
