package service

import (
	"philo_rooms/internal/repository"
)

type Services struct {
	Room      *RoomService
	Reference *ReferenceService
	WebSocket *WebSocketManager
}

func NewServices(repos *repository.Repositories, opts RoomOptions) *Services {
	wsManager := NewWebSocketManager()

	return &Services{
		Room:      NewRoomService(repos.Room, repos.Reference, wsManager, opts),
		Reference: NewReferenceService(repos.Reference),
		WebSocket: wsManager,
	}
}
