package socket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/channelchat/internal/proto"
)

type testServer struct {
	url    string
	conns  chan *websocket.Conn
	frames chan []byte
}

// startTestServer accepts WebSocket connections and records every frame the
// client sends. When gate is not nil the upgrade waits until it is closed.
func startTestServer(t *testing.T, gate chan struct{}) *testServer {
	t.Helper()

	s := &testServer{
		conns:  make(chan *websocket.Conn, 1),
		frames: make(chan []byte, 16),
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate != nil {
			<-gate
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		s.conns <- conn
		for {
			_, data, err := conn.Read(context.Background())
			if err != nil {
				return
			}
			s.frames <- data
		}
	}))
	t.Cleanup(ts.Close)

	s.url = strings.Replace(ts.URL, "http", "ws", 1)
	return s
}

func (s *testServer) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("client never connected")
		return nil
	}
}

func (s *testServer) nextFrame(t *testing.T) proto.Outgoing {
	t.Helper()
	select {
	case data := <-s.frames:
		frame, err := proto.DecodeOutgoing(data)
		if err != nil {
			t.Fatalf("decode client frame %s: %v", data, err)
		}
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func (s *testServer) noFrame(t *testing.T) {
	t.Helper()
	select {
	case data := <-s.frames:
		t.Fatalf("unexpected frame %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func dialTest(t *testing.T, url string) *Manager {
	t.Helper()
	m := Dial(context.Background(), url, Options{DialTimeout: 2 * time.Second})
	t.Cleanup(m.Disconnect)
	return m
}

func waitOpen(t *testing.T, m *Manager, opened chan struct{}) {
	t.Helper()
	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatalf("socket never opened, state %s", m.ReadyState())
	}
}

func TestSendBeforeOpenReturnsErrNotOpen(t *testing.T) {
	gate := make(chan struct{})
	srv := startTestServer(t, gate)

	m := dialTest(t, srv.url)
	opened := make(chan struct{})
	m.OnOpen().Once(func(struct{}) { close(opened) })

	if state := m.ReadyState(); state != Connecting {
		t.Fatalf("expected connecting state, got %s", state)
	}
	if err := m.Send(context.Background(), proto.Authentication("tok")); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen, got %v", err)
	}

	close(gate)
	waitOpen(t, m, opened)

	if err := m.Send(context.Background(), proto.Authentication("tok")); err != nil {
		t.Fatalf("send: %v", err)
	}
	frame, ok := srv.nextFrame(t).(proto.AuthenticationFrame)
	if !ok || frame.Token != "tok" || frame.Type != proto.TypeAuthentication {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestBadFramesAreDropped(t *testing.T) {
	srv := startTestServer(t, nil)

	m := dialTest(t, srv.url)
	received := make(chan proto.Incoming, 4)
	m.OnMessage().Add(func(in proto.Incoming) { received <- in })

	conn := srv.accept(t)
	ctx := context.Background()

	_ = conn.Write(ctx, websocket.MessageText, []byte("not json"))
	_ = conn.Write(ctx, websocket.MessageText, []byte(`{"type":"typing","user":1}`))
	_ = wsjson.Write(ctx, conn, proto.ChannelCreatedFrame{Type: proto.TypeChannelCreated, ID: 3, Owner: 1, OwnerUsername: "alice", Title: "dev"})

	select {
	case in := <-received:
		if in.Type != proto.TypeChannelCreated || in.ChannelCreated == nil || in.ChannelCreated.Title != "dev" {
			t.Fatalf("unexpected frame: %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channelCreated never delivered")
	}

	select {
	case in := <-received:
		t.Fatalf("unexpected extra delivery: %+v", in)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServerCloseNotifiesOnClose(t *testing.T) {
	srv := startTestServer(t, nil)

	m := dialTest(t, srv.url)
	closed := make(chan error, 1)
	m.OnClose().Add(func(err error) { closed <- err })

	conn := srv.accept(t)
	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("expected clean close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose never fired")
	}

	<-m.Done()
	if state := m.ReadyState(); state != Closed {
		t.Fatalf("expected closed state, got %s", state)
	}
	if err := m.Send(context.Background(), proto.Subscribe(1)); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen after close, got %v", err)
	}
}

func TestDisconnectStopsDelivery(t *testing.T) {
	srv := startTestServer(t, nil)

	m := dialTest(t, srv.url)
	events := make(chan string, 4)
	m.OnMessage().Add(func(proto.Incoming) { events <- "message" })
	m.OnClose().Add(func(error) { events <- "close" })

	conn := srv.accept(t)

	m.Disconnect()
	m.Disconnect()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection goroutine did not exit")
	}
	if state := m.ReadyState(); state != Closed {
		t.Fatalf("expected closed state, got %s", state)
	}

	_ = wsjson.Write(context.Background(), conn, proto.ChannelCreatedFrame{Type: proto.TypeChannelCreated, ID: 1})

	select {
	case ev := <-events:
		t.Fatalf("unexpected %s event after disconnect", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDialFailureEndsManager(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := strings.Replace(ts.URL, "http", "ws", 1)
	ts.Close()

	m := dialTest(t, url)

	select {
	case <-m.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("dial never finished")
	}
	if m.Err() == nil {
		t.Fatal("expected dial error")
	}
	if state := m.ReadyState(); state != Closed {
		t.Fatalf("expected closed state, got %s", state)
	}
}
