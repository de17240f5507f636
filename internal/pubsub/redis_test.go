package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicRoundTrip(t *testing.T) {
	assert.Equal(t, "room.abc", Topic("abc"))

	room, ok := RoomFromTopic("room.abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", room)

	// Room identifiers may themselves contain dots.
	room, ok = RoomFromTopic("room.team.alpha")
	assert.True(t, ok)
	assert.Equal(t, "team.alpha", room)

	_, ok = RoomFromTopic("presence.abc")
	assert.False(t, ok)
}
