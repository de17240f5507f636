package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatrelay/internal/core"
)

// RoomHandlers provides HTTP handlers for the room and history endpoints.
type RoomHandlers struct {
	service *core.Service
	log     *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(service *core.Service, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		service: service,
		log:     logger,
	}
}

// CreateRoomRequest represents the create room request body.
type CreateRoomRequest struct {
	RoomID string `json:"roomId" binding:"required,min=1,max=64"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"roomId"`
	CreatedAt string `json:"createdAt"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	RoomID    string `json:"roomId"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateRoom handles room creation.
// POST /api/v1/rooms
func (h *RoomHandlers) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), req.RoomID)
	if err != nil {
		if errors.Is(err, core.ErrRoomExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, RoomResponse{
		ID:        room.ID,
		RoomID:    room.RoomID,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	})
}

// GetRoom handles room lookup by its external identifier.
// GET /api/v1/rooms/:roomId
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	room, err := h.service.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, RoomResponse{
		ID:        room.ID,
		RoomID:    room.RoomID,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	})
}

// DeleteRoom removes a room and its entire history.
// DELETE /api/v1/rooms/:roomId
func (h *RoomHandlers) DeleteRoom(c *gin.Context) {
	roomID := c.Param("roomId")

	if err := h.service.DeleteRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to delete room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetMessages serves one page of a room's history, newest pages first,
// each page in chronological order.
// GET /api/v1/rooms/:roomId/messages?page=0&size=20
func (h *RoomHandlers) GetMessages(c *gin.Context) {
	roomID := c.Param("roomId")

	page, ok := intQuery(c, "page", 0)
	if !ok {
		return
	}
	size, ok := intQuery(c, "size", core.DefaultPageSize)
	if !ok {
		return
	}

	messages, err := h.service.History(c.Request.Context(), roomID, page, size)
	if err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room_id", roomID).Msg("failed to get messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageResponse{
			ID:        msg.ID,
			RoomID:    msg.Room,
			Sender:    msg.Sender,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.Format(time.RFC3339Nano),
		})
	}

	c.JSON(http.StatusOK, response)
}

func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name + " parameter"})
		return 0, false
	}
	return value, true
}
