package store

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrNotFound is returned when a looked up record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint rejects a write.
var ErrConflict = errors.New("conflict")

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Channel represents a chat channel.
type Channel struct {
	ID            int64
	Title         string
	OwnerID       int64
	OwnerUsername string
	CreatedAt     time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID             int64
	ChannelID      int64
	UserID         int64
	SenderUsername string
	Body           string
	SentAt         time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password. Returns ErrConflict
	// when the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ChannelStore handles channel persistence.
type ChannelStore interface {
	// CreateChannel creates a channel owned by ownerID.
	CreateChannel(ctx context.Context, title string, ownerID int64) (*Channel, error)

	// GetChannelByID retrieves a channel by ID.
	GetChannelByID(ctx context.Context, id int64) (*Channel, error)

	// ListChannels lists every channel in creation order.
	ListChannels(ctx context.Context) ([]*Channel, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID and sender username.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages returns the latest limit messages of a channel, oldest first.
	ListMessages(ctx context.Context, channelID int64, limit int) ([]*Message, error)
}

// CookieStore persists client cookies between runs.
type CookieStore interface {
	// SetCookie inserts or replaces the cookie with the same name.
	SetCookie(ctx context.Context, cookie *http.Cookie) error

	// GetCookie returns the stored cookie, expired or not, or ErrNotFound.
	GetCookie(ctx context.Context, name string) (*http.Cookie, error)
}

// Store aggregates the server-side storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
