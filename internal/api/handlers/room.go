package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"philo_rooms/internal/models"
	"philo_rooms/internal/repository"
	"philo_rooms/internal/service"
)

// SuccessMessage 是成功時回傳的 JSON 字串
const SuccessMessage = "Success!"

// RoomHandler 處理與討論房間相關的請求
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// RequestNextQuery 定義推進輪次的查詢參數
type RequestNextQuery struct {
	Key string `form:"key" binding:"required"`
}

// ParticipantLeaveQuery 定義離開房間的查詢參數，pid 在這裡統一轉成整數
type ParticipantLeaveQuery struct {
	PID     *int   `form:"pid" binding:"required,min=0"`
	RoomKey string `form:"roomKey" binding:"required"`
}

// AddParticipant 處理加入房間的請求
func (h *RoomHandler) AddParticipant(c *gin.Context) {
	result, err := h.roomService.AddParticipant(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(errorStatus(err), gin.H{"error": "分配房間失敗"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RequestNext 處理推進輪次的請求，失敗時只回傳狀態碼
func (h *RoomHandler) RequestNext(c *gin.Context) {
	var query RequestNextQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(err)
		c.Status(http.StatusBadRequest)
		return
	}

	if _, err := h.roomService.RequestNext(c.Request.Context(), query.Key); err != nil {
		_ = c.Error(err)
		status := errorStatus(err)
		if status == http.StatusNotFound {
			status = http.StatusBadRequest
		}
		c.Status(status)
		return
	}

	c.JSON(http.StatusOK, SuccessMessage)
}

// ParticipantLeave 處理離開房間的請求
func (h *RoomHandler) ParticipantLeave(c *gin.Context) {
	var query ParticipantLeaveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的參與者 ID 或房間代碼"})
		return
	}

	if _, err := h.roomService.ParticipantLeave(c.Request.Context(), query.RoomKey, *query.PID); err != nil {
		_ = c.Error(err)
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, SuccessMessage)
}

// GetRoom 處理獲取房間狀態的請求
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Request.Context(), c.Param("key"))
	if err != nil {
		_ = c.Error(err)
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, room)
}

// AddChat 處理新增聊天紀錄的請求
func (h *RoomHandler) AddChat(c *gin.Context) {
	var entry models.ChatEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "聊天內容必須是 JSON 物件"})
		return
	}

	room, err := h.roomService.AddChat(c.Request.Context(), c.Param("key"), entry)
	if err != nil {
		_ = c.Error(err)
		c.JSON(errorStatus(err), gin.H{"error": errorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, room)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidChatEntry):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTooMuchContention):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	switch errorStatus(err) {
	case http.StatusNotFound:
		return "房間不存在"
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "房間忙碌中，請稍後再試"
	default:
		return "伺服器錯誤"
	}
}
