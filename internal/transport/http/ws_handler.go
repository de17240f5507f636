package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
	"chatrelay/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to a hub client.
// Sends are handled here, in the connection's read loop, so rooms proceed
// in parallel while each connection stays serial.
type WSHandler struct {
	service *core.Service
	hub     *core.Hub
	cfg     *config.Config
	log     *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(service *core.Service, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{service: service, hub: hub, cfg: cfg, log: logger}
}

// snapshotMarks records, per room, the newest message id a history snapshot
// delivered on this connection. The write loop drops live message events at
// or below the mark, so a message racing the snapshot reaches the client
// exactly once.
type snapshotMarks struct {
	mu    sync.Mutex
	marks map[string]int64
}

func newSnapshotMarks() *snapshotMarks {
	return &snapshotMarks{marks: make(map[string]int64)}
}

func (m *snapshotMarks) set(room string, id int64) {
	m.mu.Lock()
	m.marks[room] = id
	m.mu.Unlock()
}

func (m *snapshotMarks) covers(room string, id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return id <= m.marks[room]
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(uuid.NewString(), r.URL.Query().Get("user"))
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	marks := newSnapshotMarks()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, marks)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, marks)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, marks *snapshotMarks) error {
	limiter := newRateLimiter(h.cfg.WSRateLimit)
	defer limiter.stop()

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, protoErr, err := inboundToCommand(client, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		h.handleCommand(ctx, client, cmd, limiter, marks)
	}
}

func (h *WSHandler) handleCommand(ctx context.Context, client *core.Client, cmd *core.Command, limiter *rateLimiter, marks *snapshotMarks) {
	switch cmd.Kind {
	case core.CommandJoinRoom:
		// The registry is authoritative; the hub only tracks subscribers.
		if _, err := h.service.GetRoom(ctx, cmd.Room); err != nil {
			h.sendError(client, cmd.Room, err)
			return
		}
		h.hub.Join(client, cmd.Room)
		h.sendHistorySnapshot(ctx, client, cmd.Room, marks)

	case core.CommandLeaveRoom:
		h.hub.Leave(client, cmd.Room)

	case core.CommandSendRoomMessage:
		if !limiter.allow() {
			h.sendEvent(client, &core.Event{
				Kind:  core.EventError,
				Room:  cmd.Room,
				Error: &core.CoreError{Code: "rate_limited", Message: "too many messages"},
			})
			return
		}
		if _, err := h.service.SendMessage(ctx, cmd.Room, cmd.Sender, cmd.Content); err != nil {
			h.sendError(client, cmd.Room, err)
		}
	}
}

func (h *WSHandler) sendHistorySnapshot(ctx context.Context, client *core.Client, room string, marks *snapshotMarks) {
	messages, err := h.service.RecentMessages(ctx, room, core.DefaultPageSize)
	if err != nil {
		h.log.Error().Err(err).Str("room_id", room).Msg("failed to load history snapshot")
		return
	}
	if n := len(messages); n > 0 {
		marks.set(room, messages[n-1].ID)
	}
	h.sendEvent(client, &core.Event{
		Kind:     core.EventHistory,
		Room:     room,
		Messages: messages,
	})
}

func (h *WSHandler) sendError(client *core.Client, room string, err error) {
	code := core.ErrCodeBadRequest
	if errors.Is(err, core.ErrRoomNotFound) {
		code = core.ErrCodeRoomNotFound
	}
	h.sendEvent(client, &core.Event{
		Kind:  core.EventError,
		Room:  room,
		Error: &core.CoreError{Code: code, Message: err.Error()},
	})
}

func (h *WSHandler) sendEvent(client *core.Client, event *core.Event) {
	select {
	case client.Events <- event:
	default:
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, marks *snapshotMarks) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if event.Kind == core.EventRoomMessage && marks.covers(event.Room, event.Message.ID) {
				continue
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
