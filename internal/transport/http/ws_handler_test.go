package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vovakirdan/channelchat/internal/config"
	"github.com/vovakirdan/channelchat/internal/proto"
)

func readIncoming(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.Incoming {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	in, err := proto.DecodeIncoming(data)
	if err != nil {
		t.Fatalf("decode frame %s: %v", data, err)
	}
	return in
}

func expectError(t *testing.T, ctx context.Context, conn *websocket.Conn, code string) {
	t.Helper()

	in := readIncoming(t, ctx, conn)
	if in.Error == nil || in.Error.Code != code {
		t.Fatalf("expected %s error, got %+v", code, in)
	}
}

// syncFrames sends a frame that is always rejected and waits for the rejection, so
// every frame sent before it has been processed.
func syncFrames(t *testing.T, ctx context.Context, conn *websocket.Conn) {
	t.Helper()

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"sync"}`)); err != nil {
		t.Fatalf("write sync: %v", err)
	}
	expectError(t, ctx, conn, "bad_request")
}

func TestWebSocketPushesAfterAuthenticateAndSubscribe(t *testing.T) {
	env := startTestServer(t)
	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	if err := wsjson.Write(ctx, conn, proto.Authentication(bobToken)); err != nil {
		t.Fatalf("send authentication: %v", err)
	}
	syncFrames(t, ctx, conn)

	var created proto.ChannelCreatedResponse
	env.do(t, http.MethodPost, "/api/channels", aliceToken, proto.CreateChannelRequest{Title: "general"}, &created)

	in := readIncoming(t, ctx, conn)
	if in.ChannelCreated == nil || in.ChannelCreated.ID != created.ChannelID || in.ChannelCreated.OwnerUsername != "alice" {
		t.Fatalf("expected channelCreated push, got %+v", in)
	}

	if err := wsjson.Write(ctx, conn, proto.Subscribe(created.ChannelID)); err != nil {
		t.Fatalf("send subscribe: %v", err)
	}
	syncFrames(t, ctx, conn)

	path := "/api/messages/" + itoa(created.ChannelID)
	env.do(t, http.MethodPost, path, aliceToken, proto.SendMessageRequest{Content: "hi bob"}, nil)

	in = readIncoming(t, ctx, conn)
	if in.MessageSent == nil || in.MessageSent.Content != "hi bob" || in.MessageSent.Channel != created.ChannelID || in.MessageSent.SenderUsername != "alice" {
		t.Fatalf("expected messageSent push, got %+v", in)
	}

	if got := testutil.ToFloat64(env.metrics.FramesPushed.WithLabelValues(proto.TypeMessageSent)); got != 1 {
		t.Fatalf("expected one pushed message frame, got %v", got)
	}
}

func TestWebSocketSubscribeBeforeAuthentication(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	if err := wsjson.Write(ctx, conn, proto.Subscribe(1)); err != nil {
		t.Fatalf("send subscribe: %v", err)
	}
	expectError(t, ctx, conn, "unauthorized")
}

func TestWebSocketInvalidToken(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	if err := wsjson.Write(ctx, conn, proto.Authentication("invalid")); err != nil {
		t.Fatalf("send authentication: %v", err)
	}
	expectError(t, ctx, conn, "unauthorized")
}

func TestWebSocketMalformedFrames(t *testing.T) {
	env := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	for _, frame := range []string{"not json", `{"type":"typing"}`, `{"type":"subscribe","channelId":0}`} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
			t.Fatalf("write %s: %v", frame, err)
		}
		expectError(t, ctx, conn, "bad_request")
	}
}

func TestWebSocketFrameRateLimit(t *testing.T) {
	env := startTestServerWith(t, func(cfg *config.ServerConfig) {
		cfg.WSFramesPerMinute = 2
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	for i := 0; i < 3; i++ {
		if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"typing"}`)); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
		in := readIncoming(t, ctx, conn)
		if in.Error == nil || in.Error.Code != "bad_request" {
			t.Fatalf("frame %d: expected bad_request, got %+v", i, in)
		}
		limited := strings.Contains(in.Error.Message, "rate limit exceeded")
		if limited != (i == 2) {
			t.Fatalf("frame %d: unexpected error message %q", i, in.Error.Message)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()

	want := `channelchat_http_requests_total{method="GET",route="/health",status_code="200"} 1`
	var body string
	// The request is recorded after the response has been written.
	for range 50 {
		body = scrape(t, env)
		if strings.Contains(body, want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("request counter missing from metrics output:\n%s", body)
}

func scrape(t *testing.T, env *testEnv) string {
	t.Helper()

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return buf.String()
}
