package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
)

// NewServer builds the HTTP server: REST room/message API plus the
// websocket subscriber endpoint.
func NewServer(service *core.Service, hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	rooms := NewRoomHandlers(service, logger)
	api := router.Group("/api/v1")
	{
		api.POST("/rooms", rooms.CreateRoom)
		api.GET("/rooms/:roomId", rooms.GetRoom)
		api.DELETE("/rooms/:roomId", rooms.DeleteRoom)
		api.GET("/rooms/:roomId/messages", rooms.GetMessages)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(service, hub, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
