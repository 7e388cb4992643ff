package hub

import (
	"context"
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(nil, nil, nil)
	go hub.Run(ctx)
	return hub
}

// settle waits until the hub has processed everything c sent so far.
func settle(t *testing.T, c *Client) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandReject, Error: &Error{Code: "sync", Message: "sync"}}
	ev := mustEvent(t, c.Events, EventError)
	if ev.Error.Code != "sync" {
		t.Fatalf("unexpected error while settling: %+v", ev.Error)
	}
}
