package service

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"philo_rooms/internal/repository"
)

// SeedData 是題庫種子檔的內容
type SeedData struct {
	Questions    []string `yaml:"questions"`
	Philosophers []string `yaml:"philosophers"`
}

// LoadSeedFile 從 YAML 檔讀取題目與哲學家清單
func LoadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (*SeedData, error) {
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

type ReferenceService struct {
	refRepo repository.ReferenceRepository
}

func NewReferenceService(refRepo repository.ReferenceRepository) *ReferenceService {
	return &ReferenceService{refRepo: refRepo}
}

// Seed 取代題目與哲學家清單；已建立的房間保有自己的副本，不受影響
func (s *ReferenceService) Seed(ctx context.Context, data *SeedData) error {
	if err := s.refRepo.ReplaceQuestions(ctx, data.Questions); err != nil {
		return fmt.Errorf("replace questions: %w", err)
	}
	if err := s.refRepo.ReplacePhilosophers(ctx, data.Philosophers); err != nil {
		return fmt.Errorf("replace philosophers: %w", err)
	}
	log.Info().Str("module", "service.reference").Int("questions", len(data.Questions)).Int("philosophers", len(data.Philosophers)).Msg("reference lists seeded")
	return nil
}
