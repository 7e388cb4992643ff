package hub

import (
	"context"
	"testing"

	"github.com/vovakirdan/channelchat/internal/core"
)

func benchmarkChannelBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, nil, nil)
	go hub.Run(ctx)

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient()
		hub.RegisterClient(c)
		c.Commands <- &Command{Kind: CommandAuthenticate, UserID: int64(i + 1), Username: "client"}
		c.Commands <- &Command{Kind: CommandSubscribe, ChannelID: 1}
		clients = append(clients, c)
	}

	// Drain events for all but the first recipient to avoid channel backpressure.
	target := clients[0]
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	// The reject is processed after the target's subscribe.
	target.Commands <- &Command{Kind: CommandReject, Error: &Error{Code: "sync"}}
	<-target.Events

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.PublishMessage(core.Message{ID: int64(i), ChannelID: 1, Content: "payload"})
		<-target.Events
	}
}

func BenchmarkChannelBroadcast_10(b *testing.B)  { benchmarkChannelBroadcast(b, 10) }
func BenchmarkChannelBroadcast_100(b *testing.B) { benchmarkChannelBroadcast(b, 100) }
func BenchmarkChannelBroadcast_500(b *testing.B) { benchmarkChannelBroadcast(b, 500) }
