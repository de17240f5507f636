package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies subscribers about a chat message in a room.
	EventRoomMessage EventKind = iota
	// EventUserJoined notifies subscribers about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies subscribers about a user leaving a room.
	EventUserLeft
	// EventHistory delivers a history snapshot to a client upon joining.
	EventHistory
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	User     string
	Message  Message
	Messages []Message // for EventHistory
	Error    *CoreError
}
