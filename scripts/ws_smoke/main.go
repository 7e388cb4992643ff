package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/channelchat/internal/api"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	apiURL := flag.String("api", "http://localhost:8080/api", "REST API base URL")
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username to register or log in with")
	password := flag.String("password", "smoke-test", "password for user")
	title := flag.String("channel", "smoke", "title of the channel to create")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := api.New(*apiURL, api.Options{Timeout: *timeout})

	token, err := client.Register(ctx, *user, *password)
	if errors.Is(err, core.ErrUserAlreadyExists) {
		token, err = client.Login(ctx, *user, *password)
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	channelID, err := client.AddChannel(ctx, token, *title)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	fmt.Printf("Created channel #%d\n", channelID)

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Authentication(token)); err != nil {
		return fmt.Errorf("send authentication: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Subscribe(channelID)); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}

	// Frames from one connection are handled in order; the rejected probe
	// confirms the subscribe landed before the message is posted.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"probe"}`)); err != nil {
		return fmt.Errorf("send probe: %w", err)
	}

	posted := false
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		in, err := proto.DecodeIncoming(data)
		if err != nil {
			fmt.Printf("Raw frame: %s\n", data)
			continue
		}

		switch {
		case in.Error != nil:
			if !posted && in.Error.Code == "bad_request" {
				if _, err := client.SendMessage(ctx, token, channelID, *text); err != nil {
					return fmt.Errorf("send message: %w", err)
				}
				posted = true
				continue
			}
			return fmt.Errorf("server error %s: %s", in.Error.Code, in.Error.Message)
		case in.ChannelCreated != nil:
			fmt.Printf("Channel pushed: #%d %s\n", in.ChannelCreated.ID, in.ChannelCreated.Title)
		case in.MessageSent != nil:
			msg := in.MessageSent
			fmt.Printf("Message pushed: channel=%d user=%s text=%q sendDate=%d\n", msg.Channel, msg.SenderUsername, msg.Content, msg.SendDate)
			return nil
		}
	}
}
