package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendRoomMessage delivers a chat message to room subscribers.
	CommandSendRoomMessage CommandKind = iota
	// CommandJoinRoom subscribes the client to a room's topic.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the client from a room's topic.
	CommandLeaveRoom
)

// Command represents an action requested by a client over the wire.
type Command struct {
	Kind    CommandKind
	Room    string
	Sender  string
	Content string
}
