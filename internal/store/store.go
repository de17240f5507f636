package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRoomExists is returned when creating a room whose identifier is taken.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when a room lookup matches nothing.
	ErrRoomNotFound = errors.New("room not found")
)

// Room represents a chat room. ID is the internal storage key; RoomID is the
// external identifier clients use, unique and immutable once created.
type Room struct {
	ID        int64
	RoomID    string
	CreatedAt time.Time
}

// Message represents a persisted chat message. RoomID is a non-owning
// reference to the owning room's external identifier; a message never
// outlives its room.
type Message struct {
	ID        int64
	RoomID    string
	Sender    string
	Content   string
	Timestamp time.Time
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom persists a new room with the given external identifier.
	// Returns ErrRoomExists if the identifier is already taken.
	CreateRoom(ctx context.Context, roomID string) (*Room, error)

	// GetRoomByRoomID retrieves a room by its external identifier.
	// Exact string match only. Returns ErrRoomNotFound if absent.
	GetRoomByRoomID(ctx context.Context, roomID string) (*Room, error)

	// DeleteRoom removes a room and all of its messages in one transaction.
	// Returns ErrRoomNotFound if the room does not exist.
	DeleteRoom(ctx context.Context, roomID string) error
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage appends a message to its room's history and assigns its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// CountMessages returns the number of messages stored for a room.
	CountMessages(ctx context.Context, roomID string) (int, error)

	// ListMessageWindow returns up to limit messages starting at offset
	// within a room's history, in chronological (insertion) order.
	ListMessageWindow(ctx context.Context, roomID string, offset, limit int) ([]*Message, error)

	// ListRecentMessages returns the newest limit messages of a room,
	// in chronological order.
	ListRecentMessages(ctx context.Context, roomID string, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
