package hub

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandAuthenticate binds the connection to a user. The token has
	// already been validated by the transport.
	CommandAuthenticate CommandKind = iota
	// CommandSubscribe switches the channel whose messages are pushed.
	CommandSubscribe
	// CommandReject reports a frame the transport could not accept.
	CommandReject
)

// Command represents an action requested by a client.
type Command struct {
	Kind      CommandKind
	UserID    int64
	Username  string
	ChannelID int64
	Error     *Error
}
