package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"philo_rooms/internal/models"
	"philo_rooms/internal/storage"
)

// roomColumns 把房間欄位對應到資料表欄位名稱
var roomColumns = map[models.RoomField]string{
	models.FieldParticipants:         "participants",
	models.FieldNextCounter:          "next_counter",
	models.FieldCurrentQuestionIndex: "current_question_index",
	models.FieldChatTexts:            "chat_texts",
}

type roomRepository struct {
	db *storage.PostgresDB
}

func NewRoomRepository(db *storage.PostgresDB) RoomRepository {
	return &roomRepository{db: db}
}

// FindAll 查詢所有房間，依建立時間排序
func (r *roomRepository) FindAll(ctx context.Context) ([]*models.Room, error) {
	var rooms []*models.Room
	err := r.db.WithContext(ctx).Order("created_at ASC, room_key ASC").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) FindByKey(ctx context.Context, key string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, "room_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	err := r.db.WithContext(ctx).Create(room).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

func (r *roomRepository) Update(ctx context.Context, room *models.Room, fields ...models.RoomField) error {
	columns := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		col, ok := roomColumns[f]
		if !ok {
			return fmt.Errorf("unknown room field: %s", f)
		}
		columns = append(columns, col)
	}
	columns = append(columns, "version", "updated_at")

	next := room.Clone()
	next.Version = room.Version + 1
	next.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("room_key = ? AND version = ?", room.Key, room.Version).
		Select(columns).
		Updates(next)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Room{}).Where("room_key = ?", room.Key).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrRoomNotFound
		}
		return ErrVersionConflict
	}

	room.Version = next.Version
	room.UpdatedAt = next.UpdatedAt
	return nil
}
