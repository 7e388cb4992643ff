package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/channelchat/internal/api"
	"github.com/vovakirdan/channelchat/internal/config"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/log"
	"github.com/vovakirdan/channelchat/internal/session"
	"github.com/vovakirdan/channelchat/internal/store/sqlite"
)

var errNotLoggedIn = errors.New("not logged in, run `chat login <username>` first")

// client holds everything a command needs to talk to the server.
type client struct {
	cfg     config.ClientConfig
	log     *zerolog.Logger
	store   *sqlite.SQLiteStore
	api     *api.Client
	session *session.Manager
}

// openClient loads configuration, opens the cookie database and restores the
// session stored in it.
func openClient(ctx context.Context, flags *rootFlags) (*client, error) {
	cfg, _, err := config.LoadClient(log.New("warn"), flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.UpdateFrom(config.ClientConfig{LogLevel: flags.logLevel})
	logger := log.New(cfg.LogLevel)

	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	apiClient := api.New(cfg.APIURL, api.Options{Timeout: cfg.RequestTimeout, Logger: logger})
	sm := session.NewManager(ctx, apiClient, session.NewCookieJar(st, nil), logger)

	select {
	case <-sm.ProfileLoaded():
	case <-ctx.Done():
		_ = st.Close()
		return nil, ctx.Err()
	}

	return &client{cfg: cfg, log: logger, store: st, api: apiClient, session: sm}, nil
}

func (c *client) Close() {
	if err := c.store.Close(); err != nil {
		c.log.Warn().Err(err).Msg("failed to close session database")
	}
}

func (c *client) credential() (*core.Credential, error) {
	cred := c.session.Store().Credential()
	if cred == nil {
		return nil, errNotLoggedIn
	}
	return cred, nil
}

// =============================================================================
// Session Handlers
// =============================================================================

func runRegister(cmd *cobra.Command, flags *rootFlags, username, password string) error {
	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	password, err = readPassword(cmd, password)
	if err != nil {
		return err
	}
	if err := c.session.Register(cmd.Context(), username, password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", username)
	return nil
}

func runLogin(cmd *cobra.Command, flags *rootFlags, username, password string) error {
	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	password, err = readPassword(cmd, password)
	if err != nil {
		return err
	}
	if err := c.session.Login(cmd.Context(), username, password); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, flags *rootFlags) error {
	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	c.session.Logout(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, flags *rootFlags) error {
	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	cred, err := c.credential()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User ID:  %d\n", cred.UserID)
	if user := c.session.Profile().User(); user != nil {
		fmt.Fprintf(out, "Username: %s\n", user.Username)
	} else {
		fmt.Fprintln(out, "Username: (profile unavailable)")
	}
	return nil
}

// =============================================================================
// Channel and Message Handlers
// =============================================================================

func runChannelsList(cmd *cobra.Command, flags *rootFlags) error {
	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	cred, err := c.credential()
	if err != nil {
		return err
	}
	channels, err := c.api.FetchChannels(cmd.Context(), cred.Token)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(channels) == 0 {
		fmt.Fprintln(out, "No channels yet.")
		return nil
	}
	for _, ch := range channels {
		printChannel(out, ch)
	}
	return nil
}

func runChannelsCreate(cmd *cobra.Command, flags *rootFlags, title string) error {
	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	cred, err := c.credential()
	if err != nil {
		return err
	}
	id, err := c.api.AddChannel(cmd.Context(), cred.Token, strings.TrimSpace(title))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Channel created: #%d\n", id)
	return nil
}

func runMessages(cmd *cobra.Command, flags *rootFlags, rawID string) error {
	channelID, err := parseChannelID(rawID)
	if err != nil {
		return err
	}

	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	cred, err := c.credential()
	if err != nil {
		return err
	}
	messages, err := c.api.FetchMessages(cmd.Context(), cred.Token, channelID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(messages) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return nil
	}
	for _, msg := range messages {
		printMessage(out, msg, msg.SenderID == cred.UserID)
	}
	return nil
}

func runSend(cmd *cobra.Command, flags *rootFlags, rawID string, words []string) error {
	channelID, err := parseChannelID(rawID)
	if err != nil {
		return err
	}

	c, err := openClient(cmd.Context(), flags)
	if err != nil {
		return err
	}
	defer c.Close()

	cred, err := c.credential()
	if err != nil {
		return err
	}
	if _, err := c.api.SendMessage(cmd.Context(), cred.Token, channelID, strings.Join(words, " ")); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// readPassword returns password, or the first line of stdin when it is empty.
func readPassword(cmd *cobra.Command, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

func parseChannelID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid channel id %q", raw)
	}
	return id, nil
}

func printChannel(out io.Writer, ch core.Channel) {
	fmt.Fprintf(out, "#%d  %s  (by %s)\n", ch.ID, ch.Title, ch.OwnerUsername)
}

func printMessage(out io.Writer, msg core.Message, own bool) {
	sender := msg.SenderUsername
	if own {
		sender += " (you)"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", msg.SendDate.Local().Format(time.DateTime), sender, msg.Content)
}

// describeFailure turns an error into the line shown to the user.
func describeFailure(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, core.ErrUserAlreadyExists):
		return "This user already exists."
	case errors.Is(err, core.ErrNeedsAuthentication):
		return "Your session has expired, log in again."
	case errors.Is(err, core.ErrCreationError):
		return "Your message could not be sent."
	case errors.Is(err, core.ErrRequestError):
		if f, ok := core.AsFailure(err); ok {
			if f.Message != "" {
				return fmt.Sprintf("Could not %s: %s.", f.Op, f.Message)
			}
			return fmt.Sprintf("Could not %s: an unknown error occurred.", f.Op)
		}
		return "An unknown error occurred."
	default:
		return err.Error()
	}
}
