package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/channelchat/internal/chat"
	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/socket"
)

// printer serializes writes coming from listeners and the input loop.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *printer) do(fn func(io.Writer)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.out)
}

// chatView prints list changes as they happen, each item once.
type chatView struct {
	home *chat.Home
	out  *printer

	mu       sync.Mutex
	channels map[int64]bool
	messages map[int64]bool
}

func newChatView(home *chat.Home, out *printer) *chatView {
	v := &chatView{
		home:     home,
		out:      out,
		channels: make(map[int64]bool),
		messages: make(map[int64]bool),
	}
	home.Channels().Changes().Add(v.channelsChanged)
	home.Messages().Changes().Add(v.messagesChanged)
	return v
}

func (v *chatView) channelsChanged(channels []core.Channel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ch := range channels {
		if v.channels[ch.ID] {
			continue
		}
		v.channels[ch.ID] = true
		v.out.do(func(w io.Writer) { printChannel(w, ch) })
	}
}

func (v *chatView) messagesChanged(messages []core.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(messages) == 0 {
		// The list was reset for another channel.
		clear(v.messages)
		return
	}
	for _, msg := range messages {
		if v.messages[msg.ID] {
			continue
		}
		v.messages[msg.ID] = true
		own := v.home.IsOwn(msg)
		v.out.do(func(w io.Writer) { printMessage(w, msg, own) })
	}
}

func runChat(cmd *cobra.Command, flags *rootFlags, rawID string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := openClient(ctx, flags)
	if err != nil {
		return err
	}
	defer c.Close()

	if _, err := c.credential(); err != nil {
		return err
	}

	out := &printer{out: cmd.OutOrStdout()}
	home := chat.NewHome(c.api, c.session, chat.Options{
		WSURL:  c.cfg.WSURL,
		Socket: socket.Options{Logger: c.log},
		Logger: c.log,
	})
	defer home.Close()
	newChatView(home, out)

	out.printf("Channels:\n")
	if err := home.Start(ctx); err != nil {
		return err
	}
	home.Socket().OnClose().Add(func(err error) {
		if err != nil {
			out.printf("Disconnected from server: %v\n", err)
			return
		}
		out.printf("Disconnected from server\n")
	})

	if rawID != "" {
		if err := join(ctx, home, out, rawID); err != nil {
			return err
		}
	} else {
		out.printf("Type /join <id> to open a channel.\n")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-home.Done():
			out.printf("Session ended.\n")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handleLine(ctx, home, out, line)
			if err != nil {
				out.printf("%s\n", describeFailure(err))
			}
			if quit {
				return nil
			}
		}
	}
}

// handleLine runs one line of input and reports whether the user asked to quit.
func handleLine(ctx context.Context, home *chat.Home, out *printer, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	if !strings.HasPrefix(line, "/") {
		_, err := home.SendMessage(ctx, line)
		if errors.Is(err, chat.ErrNoChannel) {
			return false, errors.New("select a channel with /join <id> first")
		}
		return false, err
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/join":
		return false, join(ctx, home, out, arg)
	case "/new":
		if arg == "" {
			return false, errors.New("usage: /new <title>")
		}
		id, err := home.AddChannel(ctx, arg)
		if err != nil {
			return false, err
		}
		out.printf("Channel created: #%d\n", id)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
}

func join(ctx context.Context, home *chat.Home, out *printer, rawID string) error {
	channelID, err := parseChannelID(rawID)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("#%d", channelID)
	for _, ch := range home.Channels().Items() {
		if ch.ID == channelID {
			title = fmt.Sprintf("#%d %s", ch.ID, ch.Title)
			break
		}
	}
	out.printf("-- %s --\n", title)
	return home.Select(ctx, channelID)
}
