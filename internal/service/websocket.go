package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"philo_rooms/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 32
)

// RoomEvent 是推送給訂閱者的訊息
type RoomEvent struct {
	Type string       `json:"type"`
	Room *models.Room `json:"room"`
}

// Client 代表一個訂閱房間狀態的 WebSocket 連接
type Client struct {
	ID       string
	Conn     *websocket.Conn
	RoomKey  string
	SendChan chan []byte   // 待送出的已編碼訊息
	done     chan struct{} // 連接結束時關閉
}

// WebSocketManager 管理所有訂閱連接並推送房間快照
type WebSocketManager struct {
	clients    map[string]map[*Client]bool // roomKey -> client -> bool
	clientsMux sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[string]map[*Client]bool),
	}
}

// HandleConnection 註冊連接並阻塞到連接結束；收到的每個 JSON 物件交給 onMessage
func (m *WebSocketManager) HandleConnection(conn *websocket.Conn, room *models.Room, onMessage func(models.ChatEntry)) {
	client := &Client{
		ID:       uuid.NewString(),
		Conn:     conn,
		RoomKey:  room.Key,
		SendChan: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}

	m.addClient(client)
	defer func() {
		m.removeClient(client)
		close(client.done)
		conn.Close()
	}()

	// 連上後先送一次目前狀態
	if payload, err := encodeRoomEvent(room); err == nil {
		client.SendChan <- payload
	}

	go m.writePump(client)
	m.readPump(client, onMessage)
}

func (m *WebSocketManager) readPump(client *Client, onMessage func(models.ChatEntry)) {
	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "service.websocket").Str("client", client.ID).Msg("unexpected close")
			}
			return
		}

		var entry models.ChatEntry
		if err := json.Unmarshal(message, &entry); err != nil {
			log.Debug().Err(err).Str("module", "service.websocket").Str("client", client.ID).Msg("message parse error")
			continue
		}
		if onMessage != nil {
			onMessage(entry)
		}
	}
}

func (m *WebSocketManager) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-client.done:
			return

		case payload := <-client.SendChan:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastRoom 把房間快照推送給該房間的所有訂閱者
func (m *WebSocketManager) BroadcastRoom(room *models.Room) {
	m.clientsMux.RLock()
	targets := make([]*Client, 0, len(m.clients[room.Key]))
	for client := range m.clients[room.Key] {
		targets = append(targets, client)
	}
	m.clientsMux.RUnlock()

	if len(targets) == 0 {
		return
	}

	payload, err := encodeRoomEvent(room)
	if err != nil {
		log.Error().Err(err).Str("module", "service.websocket").Str("room_key", room.Key).Msg("room encoding error")
		return
	}

	for _, client := range targets {
		select {
		case client.SendChan <- payload:
		default:
			// 佇列已滿，關閉慢速連接，readPump 會隨之結束
			log.Warn().Str("module", "service.websocket").Str("client", client.ID).Msg("dropping slow subscriber")
			m.removeClient(client)
			client.Conn.Close()
		}
	}
}

// RoomClients 回傳指定房間的訂閱者數量
func (m *WebSocketManager) RoomClients(roomKey string) int {
	m.clientsMux.RLock()
	defer m.clientsMux.RUnlock()

	return len(m.clients[roomKey])
}

func (m *WebSocketManager) addClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if m.clients[client.RoomKey] == nil {
		m.clients[client.RoomKey] = make(map[*Client]bool)
	}
	m.clients[client.RoomKey][client] = true
}

func (m *WebSocketManager) removeClient(client *Client) {
	m.clientsMux.Lock()
	defer m.clientsMux.Unlock()

	if clients, ok := m.clients[client.RoomKey]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(m.clients, client.RoomKey)
		}
	}
}

func encodeRoomEvent(room *models.Room) ([]byte, error) {
	return json.Marshal(RoomEvent{Type: "room", Room: room})
}

var _ Broadcaster = (*WebSocketManager)(nil)
