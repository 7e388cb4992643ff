package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/auth"
	"github.com/vovakirdan/channelchat/internal/config"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/hub"
	"github.com/vovakirdan/channelchat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/channelchat/internal/transport/http"
)

func startServer(t *testing.T) string {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	authService := auth.NewService(st, &auth.JWTConfig{Secret: []byte("cli-secret"), Issuer: "cli", TTL: time.Hour})
	h := hub.NewHub(st, &logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	cfg := config.DefaultServer()
	ts := httptest.NewServer(transporthttp.NewRouter(h, authService, st, &cfg, &logger, nil))
	t.Cleanup(ts.Close)
	return ts.URL
}

// runCLI executes the root command with args against the configured server.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionAndChannelCommands(t *testing.T) {
	url := startServer(t)
	dir := t.TempDir()
	t.Setenv("CHANNELCHAT_API_URL", url+"/api")
	t.Setenv("CHANNELCHAT_DB_PATH", filepath.Join(dir, "session.db"))
	t.Setenv("CHANNELCHAT_LOG_LEVEL", "disabled")
	configFlag := "--config=" + filepath.Join(dir, "chat.yaml")

	if _, err := runCLI(t, "", configFlag, "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected errNotLoggedIn, got %v", err)
	}

	out, err := runCLI(t, "password123\n", configFlag, "register", "alice")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "alice") {
		t.Fatalf("unexpected register output %q", out)
	}

	out, err = runCLI(t, "", configFlag, "whoami")
	if err != nil || !strings.Contains(out, "Username: alice") {
		t.Fatalf("whoami after register: %q %v", out, err)
	}

	if _, err := runCLI(t, "", configFlag, "channels", "create", "general"); err != nil {
		t.Fatalf("create channel: %v", err)
	}
	out, err = runCLI(t, "", configFlag, "channels", "list")
	if err != nil || !strings.Contains(out, "#1  general  (by alice)") {
		t.Fatalf("channels list: %q %v", out, err)
	}

	if _, err := runCLI(t, "", configFlag, "send", "1", "hello", "world"); err != nil {
		t.Fatalf("send: %v", err)
	}
	out, err = runCLI(t, "", configFlag, "messages", "1")
	if err != nil || !strings.Contains(out, "alice (you): hello world") {
		t.Fatalf("messages: %q %v", out, err)
	}

	if _, err := runCLI(t, "", configFlag, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := runCLI(t, "", configFlag, "channels", "list"); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("expected errNotLoggedIn after logout, got %v", err)
	}

	_, err = runCLI(t, "", configFlag, "login", "alice", "--password", "wrong-password")
	if !errors.Is(err, core.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if got := describeFailure(err); got != "Invalid username or password." {
		t.Fatalf("unexpected failure text %q", got)
	}
}

func TestParseChannelID(t *testing.T) {
	cases := map[string]int64{"1": 1, "#42": 42}
	for raw, want := range cases {
		got, err := parseChannelID(raw)
		if err != nil || got != want {
			t.Errorf("parseChannelID(%q) = %d, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "0", "-3", "abc"} {
		if _, err := parseChannelID(raw); err == nil {
			t.Errorf("parseChannelID(%q) should fail", raw)
		}
	}
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&core.Failure{Op: "register", Status: 2, Kind: core.KindUserAlreadyExists}, "This user already exists."},
		{&core.Failure{Op: "send message", Status: 3, Kind: core.KindCreationError}, "Your message could not be sent."},
		{&core.Failure{Op: "fetch channels", Status: 1, Kind: core.KindNeedsAuthentication}, "Your session has expired, log in again."},
		{&core.Failure{Op: "add channel", Status: 2, Kind: core.KindRequestError}, "Could not add channel: an unknown error occurred."},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		if got := describeFailure(tt.err); got != tt.want {
			t.Errorf("describeFailure(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
