package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"philo_rooms/internal/api/handlers"
	"philo_rooms/internal/middleware"
	"philo_rooms/internal/service"
)

// anyMethods 是三個房間操作接受的 HTTP 方法
var anyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func SetupRoutes(r *gin.Engine, services *service.Services, allowedOrigins []string) {
	// 初始化 handlers
	roomHandler := handlers.NewRoomHandler(services.Room)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocket, services.Room, func(origin string) bool {
		return middleware.OriginAllowed(allowedOrigins, origin)
	})

	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORSMiddleware(allowedOrigins))

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "找不到該路徑",
		})
	})

	// API 路由群組
	api := r.Group("/api")

	// 基本的健康檢查
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// 房間操作，不限 HTTP 方法
	for _, method := range anyMethods {
		api.Handle(method, "/addParticipant", roomHandler.AddParticipant)
		api.Handle(method, "/requestNext", roomHandler.RequestNext)
		api.Handle(method, "/participantLeave", roomHandler.ParticipantLeave)
	}

	// 房間狀態
	rooms := api.Group("/rooms")
	{
		rooms.GET("/:key", roomHandler.GetRoom)
		rooms.POST("/:key/chat", roomHandler.AddChat)
		rooms.GET("/:key/ws", wsHandler.HandleWebSocket)
	}
}
