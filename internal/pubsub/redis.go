package pubsub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chatrelay/internal/core"
)

const topicPrefix = "room."

// Topic returns the pub/sub channel name for a room.
func Topic(roomID string) string {
	return topicPrefix + roomID
}

// RoomFromTopic extracts the room identifier from a channel name.
// Returns false if the channel does not belong to the room namespace.
func RoomFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, topicPrefix) {
		return "", false
	}
	return topic[len(topicPrefix):], true
}

// wireMessage is the payload published to a room topic.
type wireMessage struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"roomId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher fans persisted messages out through redis so every relay
// instance sees them. Implements core.Broadcaster. Publish failures are
// logged and swallowed: a broken broadcast must never fail the sender,
// the message is already durable by the time we get here.
type Publisher struct {
	client *redis.Client
	log    *zerolog.Logger
}

// New connects a publisher to the redis instance at addr.
func New(addr string, logger *zerolog.Logger) *Publisher {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Publisher{client: client, log: logger}
}

// Broadcast publishes a persisted message to the room's topic.
func (p *Publisher) Broadcast(roomID string, msg core.Message) {
	payload, err := json.Marshal(wireMessage{
		ID:        msg.ID,
		RoomID:    roomID,
		Sender:    msg.Sender,
		Content:   msg.Content,
		Timestamp: msg.Timestamp.UnixMilli(),
	})
	if err != nil {
		p.log.Error().Err(err).Str("room_id", roomID).Msg("marshal broadcast payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.client.Publish(ctx, Topic(roomID), payload).Err(); err != nil {
		p.log.Error().Err(err).Str("room_id", roomID).Msg("publish to room topic")
	}
}

// Run subscribes to every room topic and relays incoming messages into the
// local broadcaster (the hub) until the context is cancelled. With the
// publisher as the service's Broadcaster, local subscribers receive each
// message exactly once: the only path into the hub is this relay.
func (p *Publisher) Run(ctx context.Context, local core.Broadcaster) error {
	sub := p.client.PSubscribe(ctx, topicPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			roomID, ok := RoomFromTopic(msg.Channel)
			if !ok {
				continue
			}
			var wire wireMessage
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				p.log.Warn().Err(err).Str("channel", msg.Channel).Msg("bad broadcast payload")
				continue
			}
			local.Broadcast(roomID, core.Message{
				ID:        wire.ID,
				Room:      roomID,
				Sender:    wire.Sender,
				Content:   wire.Content,
				Timestamp: time.UnixMilli(wire.Timestamp),
			})
			p.log.Debug().Str("room_id", roomID).Msg("relayed pubsub message")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close releases the redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
