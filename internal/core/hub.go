package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Hub owns the transient subscriber bookkeeping for all room topics and
// performs the in-process fan-out. All state is confined to the Run loop;
// other goroutines talk to it over channels only. The hub never queues for
// disconnected subscribers: a broadcast reaches whoever is subscribed at
// that moment, at most once each.
type Hub struct {
	log *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	joins      chan membership
	leaves     chan membership
	broadcasts chan *Event

	subs    map[string]*subscription
	clients map[*Client]struct{}

	done chan struct{}
}

type membership struct {
	client *Client
	room   string
}

// NewHub creates a new hub.
func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joins:      make(chan membership),
		leaves:     make(chan membership),
		broadcasts: make(chan *Event, 64),
		subs:       make(map[string]*subscription),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes hub traffic until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			h.removeClient(client)
		case m := <-h.joins:
			h.handleJoin(m.client, m.room)
		case m := <-h.leaves:
			h.handleLeave(m.client, m.room)
		case event := <-h.broadcasts:
			h.fanOut(event)
		case <-ctx.Done():
			return
		}
	}
}

// RegisterClient attaches a connected client to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient detaches a client and drops all its subscriptions.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes a client to a room topic. The caller is responsible for
// checking that the room exists before asking the hub.
func (h *Hub) Join(c *Client, room string) {
	select {
	case h.joins <- membership{client: c, room: room}:
	case <-h.done:
	}
}

// Leave unsubscribes a client from a room topic.
func (h *Hub) Leave(c *Client, room string) {
	select {
	case h.leaves <- membership{client: c, room: room}:
	case <-h.done:
	}
}

// Broadcast fans a message out to the room's current subscribers.
// Implements Broadcaster. Never blocks the caller once the hub has stopped.
func (h *Hub) Broadcast(roomID string, msg Message) {
	event := &Event{
		Kind:    EventRoomMessage,
		Room:    roomID,
		User:    msg.Sender,
		Message: msg,
	}
	select {
	case h.broadcasts <- event:
	case <-h.done:
	}
}

func (h *Hub) handleJoin(c *Client, room string) {
	sub, ok := h.subs[room]
	if !ok {
		sub = newSubscription(room)
		h.subs[room] = sub
	}
	if !sub.add(c) {
		h.sendTo(c, &Event{
			Kind:  EventError,
			Room:  room,
			Error: coreError(ErrCodeAlreadyJoined, "already joined"),
		})
		return
	}
	c.Rooms[room] = struct{}{}
	sub.broadcast(&Event{Kind: EventUserJoined, Room: room, User: c.Name})
	h.log.Debug().Str("room_id", room).Str("client_id", c.ID).Msg("client joined room")
}

func (h *Hub) handleLeave(c *Client, room string) {
	sub, ok := h.subs[room]
	if !ok || !sub.remove(c) {
		h.sendTo(c, &Event{
			Kind:  EventError,
			Room:  room,
			Error: coreError(ErrCodeNotInRoom, "not in room"),
		})
		return
	}
	delete(c.Rooms, room)
	sub.broadcast(&Event{Kind: EventUserLeft, Room: room, User: c.Name})
	if sub.empty() {
		delete(h.subs, room)
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.Rooms {
		if sub, ok := h.subs[room]; ok && sub.remove(c) {
			sub.broadcast(&Event{Kind: EventUserLeft, Room: room, User: c.Name})
			if sub.empty() {
				delete(h.subs, room)
			}
		}
		delete(c.Rooms, room)
	}
}

func (h *Hub) fanOut(event *Event) {
	sub, ok := h.subs[event.Room]
	if !ok {
		// Nobody subscribed; best-effort delivery means this is fine.
		return
	}
	sub.broadcast(event)
}

func (h *Hub) sendTo(c *Client, event *Event) {
	select {
	case c.Events <- event:
	default:
	}
}
