package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"philo_rooms/internal/models"
	"philo_rooms/internal/service"
)

// WebSocketHandler 處理房間狀態訂閱的 WebSocket 連接
type WebSocketHandler struct {
	wsManager   *service.WebSocketManager
	roomService *service.RoomService
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例，checkOrigin 決定允許的來源
func NewWebSocketHandler(wsManager *service.WebSocketManager, roomService *service.RoomService, checkOrigin func(origin string) bool) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		roomService: roomService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 非瀏覽器客戶端不帶 Origin
				return origin == "" || checkOrigin(origin)
			},
		},
	}
}

// HandleWebSocket 處理訂閱請求；連上後先收到目前狀態，之後每次房間變動都會收到快照
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	key := c.Param("key")

	// 升級前先確認房間存在，才能回傳正常的 HTTP 錯誤
	room, err := h.roomService.GetRoom(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已經寫入錯誤回應
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	h.wsManager.HandleConnection(conn, room, func(entry models.ChatEntry) {
		if _, err := h.roomService.AddChat(ctx, key, entry); err != nil {
			log.Warn().Err(err).Str("module", "handlers.websocket").Str("room_key", key).Msg("chat entry rejected")
		}
	})
}
