package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelchat/internal/core"
	"github.com/vovakirdan/channelchat/internal/listenable"
)

// Store holds the current credential. A nil credential means logged out.
type Store struct {
	mu        sync.Mutex
	cred      *core.Credential
	listeners *listenable.Listenable[*core.Credential]
}

// NewStore creates an empty, logged out store.
func NewStore(logger *zerolog.Logger) *Store {
	return &Store{listeners: listenable.New[*core.Credential](logger)}
}

// Credential returns the current credential or nil.
func (s *Store) Credential() *core.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// Set replaces the credential and notifies listeners, even when the value did
// not change.
func (s *Store) Set(cred *core.Credential) {
	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()

	s.listeners.Notify(cred)
}

// Listeners exposes the change notifications.
func (s *Store) Listeners() *listenable.Listenable[*core.Credential] {
	return s.listeners
}

// ProfileStore holds the last fetched profile of the logged in user.
type ProfileStore struct {
	mu        sync.Mutex
	user      *core.User
	listeners *listenable.Listenable[*core.User]
}

// NewProfileStore creates an empty profile store.
func NewProfileStore(logger *zerolog.Logger) *ProfileStore {
	return &ProfileStore{listeners: listenable.New[*core.User](logger)}
}

// User returns the cached profile or nil.
func (p *ProfileStore) User() *core.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user
}

// Set replaces the profile and notifies listeners.
func (p *ProfileStore) Set(user *core.User) {
	p.mu.Lock()
	p.user = user
	p.mu.Unlock()

	p.listeners.Notify(user)
}

// Listeners exposes the change notifications.
func (p *ProfileStore) Listeners() *listenable.Listenable[*core.User] {
	return p.listeners
}
