package repository

import (
	"context"
	"errors"

	"philo_rooms/internal/models"
	"philo_rooms/internal/storage"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrVersionConflict = errors.New("room was modified concurrently")
	ErrDuplicateKey    = errors.New("room key already exists")
)

// RoomRepository 是房間集合的存取介面
type RoomRepository interface {
	// FindAll 依儲存層預設順序回傳所有房間
	FindAll(ctx context.Context) ([]*models.Room, error)
	FindByKey(ctx context.Context, key string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	// Update 只寫入指定欄位，且只在版本號相符時成功；成功後 room.Version 會加一
	Update(ctx context.Context, room *models.Room, fields ...models.RoomField) error
}

// ReferenceRepository 是題目與哲學家清單的存取介面
type ReferenceRepository interface {
	QuestionTexts(ctx context.Context) ([]string, error)
	PhilosopherTexts(ctx context.Context) ([]string, error)
	ReplaceQuestions(ctx context.Context, texts []string) error
	ReplacePhilosophers(ctx context.Context, texts []string) error
}

type Repositories struct {
	Room      RoomRepository
	Reference ReferenceRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		Room:      NewRoomRepository(db),
		Reference: NewReferenceRepository(db),
	}
}

func NewMongoRepositories(db *storage.MongoDB) *Repositories {
	return &Repositories{
		Room:      NewMongoRoomRepository(db),
		Reference: NewMongoReferenceRepository(db),
	}
}

func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Room:      NewMemoryRoomRepository(),
		Reference: NewMemoryReferenceRepository(),
	}
}
