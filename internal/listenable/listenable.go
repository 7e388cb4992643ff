// Package listenable provides a small publish/subscribe registry shared by
// every stateful component of the client.
package listenable

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ID identifies a registered listener. Go funcs are not comparable, so the
// handle returned by Add is what Remove matches on.
type ID uint64

type entry[T any] struct {
	id ID
	fn func(T)
}

// Listenable holds an ordered list of listeners for values of type T.
// It is safe for concurrent use.
type Listenable[T any] struct {
	mu        sync.Mutex
	next      ID
	listeners []entry[T]
	log       *zerolog.Logger
}

// New creates an empty registry. A nil logger disables panic reporting.
func New[T any](logger *zerolog.Logger) *Listenable[T] {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Listenable[T]{log: logger}
}

// Add registers fn and returns its handle.
func (l *Listenable[T]) Add(fn func(T)) ID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	l.listeners = append(l.listeners, entry[T]{id: l.next, fn: fn})
	return l.next
}

// Once registers fn so that it is removed right before its first call.
func (l *Listenable[T]) Once(fn func(T)) ID {
	var once sync.Once

	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	id := l.next
	l.listeners = append(l.listeners, entry[T]{id: id, fn: func(v T) {
		once.Do(func() {
			l.Remove(id)
			fn(v)
		})
	}})
	return id
}

// Remove drops the listener registered under id. Unknown ids are ignored.
func (l *Listenable[T]) Remove(id ID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.listeners {
		if e.id == id {
			l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
			return
		}
	}
}

// Len reports how many listeners are registered.
func (l *Listenable[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners)
}

// Notify calls every listener registered at the time of the call, in
// registration order. Listeners added while notifying are not called in this
// pass. A panicking listener is logged and skipped.
func (l *Listenable[T]) Notify(v T) {
	l.mu.Lock()
	snapshot := make([]entry[T], len(l.listeners))
	copy(snapshot, l.listeners)
	l.mu.Unlock()

	for _, e := range snapshot {
		l.call(e, v)
	}
}

func (l *Listenable[T]) call(e entry[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().
				Uint64("listener_id", uint64(e.id)).
				Str("panic", fmt.Sprint(r)).
				Msg("listener panicked")
		}
	}()
	e.fn(v)
}
