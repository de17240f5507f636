package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateRoomUnique(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", room.RoomID)
	assert.NotZero(t, room.ID)
	assert.False(t, room.CreatedAt.IsZero())

	_, err = s.CreateRoom(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrRoomExists)

	// A different identifier is fine.
	other, err := s.CreateRoom(ctx, "abcd")
	require.NoError(t, err)
	assert.NotEqual(t, room.ID, other.ID)
}

func TestGetRoomByRoomID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateRoom(ctx, "abc")
	require.NoError(t, err)

	got, err := s.GetRoomByRoomID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = s.GetRoomByRoomID(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}

func seedMessages(t *testing.T, s *SQLiteStore, roomID string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		msg := &store.Message{
			RoomID:    roomID,
			Sender:    "alice",
			Content:   fmt.Sprintf("m%d", i),
			Timestamp: time.Now().UTC(),
		}
		require.NoError(t, s.SaveMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
	}
}

func TestMessageOrderAndWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRoom(ctx, "abc")
	require.NoError(t, err)
	seedMessages(t, s, "abc", 10)

	count, err := s.CountMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 10, count)

	window, err := s.ListMessageWindow(ctx, "abc", 3, 4)
	require.NoError(t, err)
	require.Len(t, window, 4)
	assert.Equal(t, "m4", window[0].Content)
	assert.Equal(t, "m7", window[3].Content)
	for i := 1; i < len(window); i++ {
		assert.Greater(t, window[i].ID, window[i-1].ID)
	}

	// Offset past the end is empty, not an error.
	window, err = s.ListMessageWindow(ctx, "abc", 50, 4)
	require.NoError(t, err)
	assert.Empty(t, window)
}

func TestListRecentMessagesChronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRoom(ctx, "abc")
	require.NoError(t, err)
	seedMessages(t, s, "abc", 7)

	recent, err := s.ListRecentMessages(ctx, "abc", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "m5", recent[0].Content)
	assert.Equal(t, "m7", recent[2].Content)

	// More than available returns everything.
	recent, err = s.ListRecentMessages(ctx, "abc", 100)
	require.NoError(t, err)
	assert.Len(t, recent, 7)
	assert.Equal(t, "m1", recent[0].Content)
}

func TestMessagesScopedPerRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRoom(ctx, "abc")
	require.NoError(t, err)
	_, err = s.CreateRoom(ctx, "xyz")
	require.NoError(t, err)

	seedMessages(t, s, "abc", 3)
	seedMessages(t, s, "xyz", 2)

	count, err := s.CountMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = s.CountMessages(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestDeleteRoomCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateRoom(ctx, "abc")
	require.NoError(t, err)
	seedMessages(t, s, "abc", 5)

	require.NoError(t, s.DeleteRoom(ctx, "abc"))

	_, err = s.GetRoomByRoomID(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)

	// No orphaned messages may survive the room.
	count, err := s.CountMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, s.DeleteRoom(ctx, "abc"), store.ErrRoomNotFound)
}

func TestSaveMessageRequiresRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := &store.Message{
		RoomID:    "ghost",
		Sender:    "alice",
		Content:   "hi",
		Timestamp: time.Now().UTC(),
	}
	assert.ErrorIs(t, s.SaveMessage(ctx, msg), store.ErrRoomNotFound)

	// The insert must not have landed.
	count, err := s.CountMessages(ctx, "ghost")
	require.NoError(t, err)
	assert.Zero(t, count)
}
