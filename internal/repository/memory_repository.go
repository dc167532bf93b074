package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"philo_rooms/internal/models"
)

// MemoryRoomRepository 把房間保存在行程內，用於開發與測試
type MemoryRoomRepository struct {
	mu    sync.RWMutex
	order []string
	rooms map[string]*models.Room
}

func NewMemoryRoomRepository() *MemoryRoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[string]*models.Room),
	}
}

// FindAll 依建立順序回傳房間的副本
func (r *MemoryRoomRepository) FindAll(_ context.Context) ([]*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(r.order))
	for _, key := range r.order {
		rooms = append(rooms, r.rooms[key].Clone())
	}
	return rooms, nil
}

func (r *MemoryRoomRepository) FindByKey(_ context.Context, key string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[key]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (r *MemoryRoomRepository) Create(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.Key]; ok {
		return ErrDuplicateKey
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	r.rooms[room.Key] = room.Clone()
	r.order = append(r.order, room.Key)
	return nil
}

func (r *MemoryRoomRepository) Update(_ context.Context, room *models.Room, fields ...models.RoomField) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.rooms[room.Key]
	if !ok {
		return ErrRoomNotFound
	}
	if stored.Version != room.Version {
		return ErrVersionConflict
	}

	next := stored.Clone()
	src := room.Clone()
	for _, f := range fields {
		switch f {
		case models.FieldParticipants:
			next.Participants = src.Participants
		case models.FieldNextCounter:
			next.NextCounter = src.NextCounter
		case models.FieldCurrentQuestionIndex:
			next.CurrentQuestionIndex = src.CurrentQuestionIndex
		case models.FieldChatTexts:
			next.ChatTexts = src.ChatTexts
		default:
			return fmt.Errorf("unknown room field: %s", f)
		}
	}
	next.Version++
	next.UpdatedAt = time.Now()
	r.rooms[room.Key] = next

	room.Version = next.Version
	room.UpdatedAt = next.UpdatedAt
	return nil
}

// MemoryReferenceRepository 是行程內的題目與哲學家清單
type MemoryReferenceRepository struct {
	mu           sync.RWMutex
	questions    []string
	philosophers []string
}

func NewMemoryReferenceRepository() *MemoryReferenceRepository {
	return &MemoryReferenceRepository{}
}

func (r *MemoryReferenceRepository) QuestionTexts(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.questions), nil
}

func (r *MemoryReferenceRepository) PhilosopherTexts(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.philosophers), nil
}

func (r *MemoryReferenceRepository) ReplaceQuestions(_ context.Context, texts []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions = slices.Clone(texts)
	return nil
}

func (r *MemoryReferenceRepository) ReplacePhilosophers(_ context.Context, texts []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.philosophers = slices.Clone(texts)
	return nil
}

var (
	_ RoomRepository      = (*MemoryRoomRepository)(nil)
	_ ReferenceRepository = (*MemoryReferenceRepository)(nil)
)
