// Package chat holds the client side state of the chat page: the channel and
// message lists and the Home that keeps them in sync with the server.
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/listenable"
)

// list is an ordered, id-unique collection that notifies a snapshot of its
// items on every change.
type list[T any] struct {
	mu      sync.Mutex
	key     func(T) int64
	items   []T
	seen    map[int64]struct{}
	closed  bool
	changes *listenable.Listenable[[]T]
}

func newList[T any](key func(T) int64, logger *zerolog.Logger) *list[T] {
	return &list[T]{
		key:     key,
		seen:    make(map[int64]struct{}),
		changes: listenable.New[[]T](logger),
	}
}

func (l *list[T]) snapshot() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Items returns a copy of the current items in display order.
func (l *list[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Len reports the number of items.
func (l *list[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Changes is notified with the full list after every change.
func (l *list[T]) Changes() *listenable.Listenable[[]T] { return l.changes }

func (l *list[T]) appendLocked(v T) bool {
	id := l.key(v)
	if _, ok := l.seen[id]; ok {
		return false
	}
	l.seen[id] = struct{}{}
	l.items = append(l.items, v)
	return true
}

// Append adds v at the end unless an item with the same id is present.
func (l *list[T]) Append(v T) bool {
	l.mu.Lock()
	if l.closed || !l.appendLocked(v) {
		l.mu.Unlock()
		return false
	}
	items := l.snapshot()
	l.mu.Unlock()

	l.changes.Notify(items)
	return true
}

// loadLocked replaces the items with fetched, keeping anything appended since the
// last reset that the fetch did not return.
func (l *list[T]) loadLocked(fetched []T) {
	pushed := l.items
	l.items = make([]T, 0, len(fetched)+len(pushed))
	l.seen = make(map[int64]struct{}, len(fetched)+len(pushed))
	for _, v := range fetched {
		l.appendLocked(v)
	}
	for _, v := range pushed {
		l.appendLocked(v)
	}
}

func (l *list[T]) resetLocked() {
	l.items = nil
	l.seen = make(map[int64]struct{})
}

func (l *list[T]) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// ChannelList is the ordered list of channels shown in the sidebar.
type ChannelList struct {
	*list[core.Channel]
}

// NewChannelList creates an empty channel list.
func NewChannelList(logger *zerolog.Logger) *ChannelList {
	return &ChannelList{list: newList(func(c core.Channel) int64 { return c.ID }, logger)}
}

// Load merges a fetched channel list with channels pushed while it was
// being fetched.
func (c *ChannelList) Load(channels []core.Channel) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.loadLocked(channels)
	items := c.snapshot()
	c.mu.Unlock()

	c.changes.Notify(items)
}

// MessageList holds the messages of the open channel.
type MessageList struct {
	*list[core.Message]
	channelID int64
	open      bool
}

// NewMessageList creates a message list with no open channel.
func NewMessageList(logger *zerolog.Logger) *MessageList {
	return &MessageList{list: newList(func(m core.Message) int64 { return m.ID }, logger)}
}

// Channel returns the open channel.
func (m *MessageList) Channel() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID, m.open
}

// Reset empties the list and opens channelID.
func (m *MessageList) Reset(channelID int64) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.resetLocked()
	m.channelID = channelID
	m.open = true
	m.mu.Unlock()

	m.changes.Notify(nil)
}

// Load merges fetched messages of channelID. Results for a channel that is no
// longer open are dropped.
func (m *MessageList) Load(channelID int64, messages []core.Message) bool {
	m.mu.Lock()
	if m.closed || !m.open || m.channelID != channelID {
		m.mu.Unlock()
		return false
	}
	m.loadLocked(messages)
	items := m.snapshot()
	m.mu.Unlock()

	m.changes.Notify(items)
	return true
}

// Append adds msg if it belongs to the open channel and is not already listed.
func (m *MessageList) Append(msg core.Message) bool {
	m.mu.Lock()
	if m.closed || !m.open || m.channelID != msg.ChannelID || !m.appendLocked(msg) {
		m.mu.Unlock()
		return false
	}
	items := m.snapshot()
	m.mu.Unlock()

	m.changes.Notify(items)
	return true
}
