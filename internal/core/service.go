package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/store"
)

// DefaultPageSize is the history page size used when a caller does not
// specify one.
const DefaultPageSize = 20

// Service implements the room registry, message ingest, and history
// pagination on top of a store.Store. A persisted message is handed to the
// Broadcaster only after the store reports success.
type Service struct {
	store       store.Store
	broadcaster Broadcaster
	log         *zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*roomState
}

// roomState serializes appends to a single room and tracks its timestamp
// watermark. Rooms proceed fully in parallel with respect to each other.
type roomState struct {
	mu     sync.Mutex
	lastTS time.Time
}

// NewService constructs a chat service.
func NewService(st store.Store, broadcaster Broadcaster, logger *zerolog.Logger) *Service {
	return &Service{
		store:       st,
		broadcaster: broadcaster,
		log:         logger,
		rooms:       make(map[string]*roomState),
	}
}

func (s *Service) roomState(roomID string) *roomState {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.rooms[roomID]
	if !ok {
		rs = &roomState{}
		s.rooms[roomID] = rs
	}
	return rs
}

// CreateRoom registers a new room under the given external identifier.
// Returns ErrRoomExists if the identifier is already taken.
func (s *Service) CreateRoom(ctx context.Context, roomID string) (*store.Room, error) {
	if roomID == "" {
		return nil, ErrBadRequest
	}

	room, err := s.store.CreateRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomExists) {
			return nil, ErrRoomExists
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.log.Info().Str("room_id", room.RoomID).Int64("id", room.ID).Msg("room created")
	return room, nil
}

// GetRoom looks a room up by its external identifier, exact match only.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*store.Room, error) {
	room, err := s.store.GetRoomByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// DeleteRoom removes a room together with its entire message history.
func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	rs := s.roomState(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("delete room: %w", err)
	}

	s.mu.Lock()
	delete(s.rooms, roomID)
	s.mu.Unlock()

	s.log.Info().Str("room_id", roomID).Msg("room deleted")
	return nil
}

// SendMessage validates the room, stamps the message with server time, and
// persists it. The roomID parameter is authoritative; anything a client put
// in the message body is ignored. On success the persisted message is fanned
// out to the room's topic.
func (s *Service) SendMessage(ctx context.Context, roomID, sender, content string) (*Message, error) {
	rs := s.roomState(roomID)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	// The existence check shares the room lock with DeleteRoom, so a racing
	// delete cannot slip in between the check and the insert.
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	if ts.Before(rs.lastTS) {
		ts = rs.lastTS
	}

	record := &store.Message{
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Timestamp: ts,
	}
	if err := s.store.SaveMessage(ctx, record); err != nil {
		// The store refuses messages without an owning room, which backstops
		// the check above against deletes that bypass this service.
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("save message: %w", err)
	}
	rs.lastTS = ts

	msg := messageFromRecord(record)

	// Durability before visibility: the broadcast happens strictly after the
	// store reported success, and inside the room lock so fan-out order
	// matches persisted order.
	s.broadcaster.Broadcast(roomID, msg)

	s.log.Debug().
		Str("room_id", roomID).
		Str("sender", sender).
		Int64("message_id", msg.ID).
		Msg("message sent")

	return &msg, nil
}

// History returns one page of a room's message history. Pages are counted
// from the end: page 0 is the newest up-to-pageSize messages, page 1 the
// pageSize messages before those. The returned slice is always in
// chronological order. Out-of-range pages and pageSize<=0 yield an empty
// page, never an error.
func (s *Service) History(ctx context.Context, roomID string, page, pageSize int) ([]*Message, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	if page < 0 || pageSize <= 0 {
		return []*Message{}, nil
	}

	total, err := s.store.CountMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	end := total - page*pageSize
	if end <= 0 {
		return []*Message{}, nil
	}
	start := end - pageSize
	if start < 0 {
		start = 0
	}

	records, err := s.store.ListMessageWindow(ctx, roomID, start, end-start)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]*Message, 0, len(records))
	for _, rec := range records {
		m := messageFromRecord(rec)
		messages = append(messages, &m)
	}
	return messages, nil
}

// RecentMessages returns the newest limit messages of a room in
// chronological order. Used for the snapshot delivered on subscribe.
func (s *Service) RecentMessages(ctx context.Context, roomID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	records, err := s.store.ListRecentMessages(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	messages := make([]Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, messageFromRecord(rec))
	}
	return messages, nil
}

func messageFromRecord(rec *store.Message) Message {
	return Message{
		ID:        rec.ID,
		Room:      rec.RoomID,
		Sender:    rec.Sender,
		Content:   rec.Content,
		Timestamp: rec.Timestamp,
	}
}
