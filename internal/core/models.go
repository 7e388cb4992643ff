package core

import "time"

// Credential is an authenticated session: the bearer token and the user id
// decoded from its payload.
type Credential struct {
	Token  string
	UserID int64
}

// User is the profile of the logged in user.
type User struct {
	ID       int64
	Username string
}

// Channel is a chat channel as listed by the server.
type Channel struct {
	ID            int64
	OwnerID       int64
	OwnerUsername string
	Title         string
}

// Message is a chat message posted in a channel.
type Message struct {
	ID             int64
	Content        string
	SenderID       int64
	SenderUsername string
	ChannelID      int64
	SendDate       time.Time
}
