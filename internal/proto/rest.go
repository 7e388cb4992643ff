package proto

// Envelope is embedded in every REST response. On failure Error is true and
// Status/Message describe it.
type Envelope struct {
	Error   bool   `json:"error"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Failed builds a failure envelope.
func Failed(status int, message string) Envelope {
	return Envelope{Error: true, Status: status, Message: message}
}

// CredentialsRequest is the body of /login and /register.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse answers /login and /register.
type TokenResponse struct {
	Envelope
	Token string `json:"token,omitempty"`
}

// ProfileResponse answers GET /profile.
type ProfileResponse struct {
	Envelope
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

// ChannelData is a channel entry in REST payloads.
type ChannelData struct {
	ID            int64  `json:"id"`
	Owner         int64  `json:"owner"`
	OwnerUsername string `json:"ownerUsername"`
	Title         string `json:"title"`
}

// ChannelsResponse answers GET /channels.
type ChannelsResponse struct {
	Envelope
	Channels []ChannelData `json:"channels,omitempty"`
}

// CreateChannelRequest is the body of POST /channels.
type CreateChannelRequest struct {
	Title string `json:"title"`
}

// ChannelCreatedResponse answers POST /channels.
type ChannelCreatedResponse struct {
	Envelope
	ChannelID int64 `json:"channelId,omitempty"`
}

// MessageData is a message entry in REST payloads.
type MessageData struct {
	ID             int64  `json:"id"`
	Content        string `json:"content"`
	Sender         int64  `json:"sender"`
	SenderUsername string `json:"senderUsername"`
	SendDate       int64  `json:"sendDate"` // epoch milliseconds
}

// MessagesResponse answers GET /messages/:channelId.
type MessagesResponse struct {
	Envelope
	Messages []MessageData `json:"messages,omitempty"`
}

// SendMessageRequest is the body of POST /messages/:channelId.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageSentResponse answers POST /messages/:channelId.
type MessageSentResponse struct {
	Envelope
	MessageID int64 `json:"messageId,omitempty"`
}

// Head returns the envelope; it is promoted to every response type.
func (e Envelope) Head() Envelope { return e }
