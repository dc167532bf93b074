package repository

import (
	"context"

	"gorm.io/gorm"

	"philo_rooms/internal/models"
	"philo_rooms/internal/storage"
)

type referenceRepository struct {
	db *storage.PostgresDB
}

func NewReferenceRepository(db *storage.PostgresDB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) QuestionTexts(ctx context.Context) ([]string, error) {
	var texts []string
	err := r.db.WithContext(ctx).Model(&models.Question{}).Order("id").Pluck("text", &texts).Error
	return texts, err
}

func (r *referenceRepository) PhilosopherTexts(ctx context.Context) ([]string, error) {
	var texts []string
	err := r.db.WithContext(ctx).Model(&models.Philosopher{}).Order("id").Pluck("text", &texts).Error
	return texts, err
}

// ReplaceQuestions 以新的清單取代整個題庫
func (r *referenceRepository) ReplaceQuestions(ctx context.Context, texts []string) error {
	rows := make([]models.Question, len(texts))
	for i, text := range texts {
		rows[i] = models.Question{Text: text}
	}
	return r.replace(ctx, &models.Question{}, rows, len(rows))
}

// ReplacePhilosophers 以新的清單取代整個哲學家清單
func (r *referenceRepository) ReplacePhilosophers(ctx context.Context, texts []string) error {
	rows := make([]models.Philosopher, len(texts))
	for i, text := range texts {
		rows[i] = models.Philosopher{Text: text}
	}
	return r.replace(ctx, &models.Philosopher{}, rows, len(rows))
}

func (r *referenceRepository) replace(ctx context.Context, model interface{}, rows interface{}, n int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
}
