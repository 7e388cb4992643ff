package hub

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/metrics"
	"github.com/vovakirdan/channelchat/internal/store/sqlite"
)

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := startHub(t)

	alice := NewClient()
	bob := NewClient()
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)

	alice.Commands <- &Command{Kind: CommandAuthenticate, UserID: 1, Username: "alice"}
	alice.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 7}
	bob.Commands <- &Command{Kind: CommandAuthenticate, UserID: 2, Username: "bob"}
	bob.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 8}
	settle(t, alice)
	settle(t, bob)

	hub.PublishMessage(core.Message{ID: 1, ChannelID: 7, Content: "hi", SenderID: 2, SenderUsername: "bob"})

	ev := mustEvent(t, alice.Events, EventMessageSent)
	if ev.Message.Content != "hi" || ev.Message.ChannelID != 7 {
		t.Fatalf("unexpected message event: %+v", ev)
	}
	mustNoEvent(t, bob.Events)
}

func TestHubChannelCreatedReachesAuthenticatedClients(t *testing.T) {
	hub := startHub(t)

	alice := NewClient()
	anon := NewClient()
	hub.RegisterClient(alice)
	hub.RegisterClient(anon)

	alice.Commands <- &Command{Kind: CommandAuthenticate, UserID: 1, Username: "alice"}
	settle(t, alice)
	settle(t, anon)

	hub.PublishChannelCreated(core.Channel{ID: 3, OwnerID: 1, OwnerUsername: "alice", Title: "dev"})

	ev := mustEvent(t, alice.Events, EventChannelCreated)
	if ev.Channel.Title != "dev" {
		t.Fatalf("unexpected channel event: %+v", ev)
	}
	mustNoEvent(t, anon.Events)
}

func TestHubSubscribeBeforeAuthenticateIsUnauthorized(t *testing.T) {
	hub := startHub(t)

	alice := NewClient()
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 1}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", ev)
	}
}

func TestHubResubscribeMovesClient(t *testing.T) {
	hub := startHub(t)

	alice := NewClient()
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandAuthenticate, UserID: 1, Username: "alice"}
	alice.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 1}
	alice.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 2}
	settle(t, alice)

	hub.PublishMessage(core.Message{ID: 1, ChannelID: 1, Content: "old room"})
	hub.PublishMessage(core.Message{ID: 2, ChannelID: 2, Content: "new room"})

	ev := mustEvent(t, alice.Events, EventMessageSent)
	if ev.Message.ChannelID != 2 {
		t.Fatalf("message from the previous channel leaked: %+v", ev)
	}
}

func TestHubUnknownChannelRejected(t *testing.T) {
	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(sqlite.Schema)
		return err
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(st, nil, nil)
	go hub.Run(ctx)

	alice := NewClient()
	hub.RegisterClient(alice)
	alice.Commands <- &Command{Kind: CommandAuthenticate, UserID: 1, Username: "alice"}
	alice.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 404}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeChannelNotFound {
		t.Fatalf("expected channel_not_found error, got %+v", ev)
	}
}

func TestHubUnregisterClosesEvents(t *testing.T) {
	m := metrics.New()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil, nil, m)
	go hub.Run(ctx)

	alice := NewClient()
	hub.RegisterClient(alice)
	hub.UnregisterClient(alice)

	select {
	case _, ok := <-alice.Events:
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}

	// Unregistering twice is harmless.
	hub.UnregisterClient(alice)
}
