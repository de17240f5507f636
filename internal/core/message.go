package core

import "time"

// Message is the domain model for a chat message. Timestamp is always
// server-assigned; anything a client supplies is discarded.
type Message struct {
	ID        int64
	Room      string
	Sender    string
	Content   string
	Timestamp time.Time
}

// Broadcaster fans a persisted message out to the subscribers of a room's
// topic. Delivery is best-effort and must never block or fail the sender.
type Broadcaster interface {
	Broadcast(roomID string, msg Message)
}
