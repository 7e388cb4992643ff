package sqlite

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/vovakirdan/channelchat/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := s.CreateUser(ctx, "alice", "other"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChannelsListedInCreationOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	titles := []string{"general", "random", "dev"}
	for _, title := range titles {
		if _, err := s.CreateChannel(ctx, title, alice.ID); err != nil {
			t.Fatalf("create channel %s: %v", title, err)
		}
	}

	channels, err := s.ListChannels(ctx)
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	if len(channels) != len(titles) {
		t.Fatalf("expected %d channels, got %d", len(titles), len(channels))
	}
	for i, ch := range channels {
		if ch.Title != titles[i] || ch.OwnerUsername != "alice" || ch.OwnerID != alice.ID {
			t.Errorf("unexpected channel at %d: %+v", i, ch)
		}
	}

	if _, err := s.GetChannelByID(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListMessagesReturnsLatestOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bob, err := s.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	ch, err := s.CreateChannel(ctx, "general", bob.ID)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	base := time.UnixMilli(1700000000000)
	for i, body := range []string{"one", "two", "three"} {
		msg := &store.Message{ChannelID: ch.ID, UserID: bob.ID, Body: body, SentAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message: %v", err)
		}
		if msg.ID == 0 || msg.SenderUsername != "bob" {
			t.Fatalf("save did not fill message: %+v", msg)
		}
	}

	messages, err := s.ListMessages(ctx, ch.ID, 2)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Body != "two" || messages[1].Body != "three" {
		t.Fatalf("unexpected order: %s, %s", messages[0].Body, messages[1].Body)
	}
	if !messages[1].SentAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("unexpected sent_at: %v", messages[1].SentAt)
	}
}

func TestListMessagesWithoutLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bob, err := s.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	ch, err := s.CreateChannel(ctx, "general", bob.ID)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	for _, body := range []string{"one", "two", "three"} {
		msg := &store.Message{ChannelID: ch.ID, UserID: bob.ID, Body: body, SentAt: time.Now()}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("save message: %v", err)
		}
	}

	for _, limit := range []int{0, -5} {
		messages, err := s.ListMessages(ctx, ch.ID, limit)
		if err != nil {
			t.Fatalf("list messages with limit %d: %v", limit, err)
		}
		if len(messages) != 3 || messages[0].Body != "one" || messages[2].Body != "three" {
			t.Fatalf("limit %d: expected the whole history, got %d messages", limit, len(messages))
		}
	}
}

func TestCookieUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetCookie(ctx, "AUTH_JWT"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	expires := time.Unix(1800000000, 0)
	first := &http.Cookie{Name: "AUTH_JWT", Value: "a.b.c", Expires: expires, Secure: true, SameSite: http.SameSiteStrictMode}
	if err := s.SetCookie(ctx, first); err != nil {
		t.Fatalf("set cookie: %v", err)
	}

	second := &http.Cookie{Name: "AUTH_JWT", Value: "", Expires: time.Unix(0, 0), SameSite: http.SameSiteStrictMode}
	if err := s.SetCookie(ctx, second); err != nil {
		t.Fatalf("overwrite cookie: %v", err)
	}

	got, err := s.GetCookie(ctx, "AUTH_JWT")
	if err != nil {
		t.Fatalf("get cookie: %v", err)
	}
	if got.Value != "" || !got.Expires.Equal(time.Unix(0, 0)) || got.Secure || got.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie: %+v", got)
	}
}
