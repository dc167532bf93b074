package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"philo_rooms/internal/models"
	"philo_rooms/internal/repository"
)

var (
	ErrTooMuchContention = errors.New("room update kept conflicting, giving up")
	ErrInvalidChatEntry  = errors.New("chat entry must be a non-empty object")
)

// RoomOptions 是房間服務的可調參數
type RoomOptions struct {
	RoomSize          int
	IDMode            IDMode
	MaxUpdateAttempts int
	KeyLength         int

	// 測試時可替換
	Shuffle func([]string)
	NewKey  func(n int) (string, error)
}

func (o *RoomOptions) setDefaults() {
	if o.RoomSize <= 0 {
		o.RoomSize = 10
	}
	if o.IDMode == "" {
		o.IDMode = IDModeLegacy
	}
	if o.MaxUpdateAttempts <= 0 {
		o.MaxUpdateAttempts = 5
	}
	if o.KeyLength <= 0 {
		o.KeyLength = 12
	}
	if o.Shuffle == nil {
		o.Shuffle = shuffleTexts
	}
	if o.NewKey == nil {
		o.NewKey = GenerateKey
	}
}

// Broadcaster 接收房間狀態變更
type Broadcaster interface {
	BroadcastRoom(room *models.Room)
}

// JoinResult 是加入房間後回傳給參與者的內容
type JoinResult struct {
	ID int `json:"id"`
	*models.Room
}

type RoomService struct {
	roomRepo    repository.RoomRepository
	refRepo     repository.ReferenceRepository
	broadcaster Broadcaster
	opts        RoomOptions
}

func NewRoomService(roomRepo repository.RoomRepository, refRepo repository.ReferenceRepository, broadcaster Broadcaster, opts RoomOptions) *RoomService {
	opts.setDefaults()
	return &RoomService{
		roomRepo:    roomRepo,
		refRepo:     refRepo,
		broadcaster: broadcaster,
		opts:        opts,
	}
}

// AddParticipant 把參與者放進第一個有空位的房間，沒有的話建立新房間
func (s *RoomService) AddParticipant(ctx context.Context) (*JoinResult, error) {
	for attempt := 1; attempt <= s.opts.MaxUpdateAttempts; attempt++ {
		rooms, err := s.roomRepo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}

		var (
			room *models.Room
			id   int
		)
		for _, r := range rooms {
			if !r.HasCapacity(s.opts.RoomSize) {
				continue
			}
			// 哲學家少於房間人數時座位會先用完，視同滿房
			seat, err := NextAvailableID(r.Participants, len(r.Philosophers), s.opts.RoomSize, s.opts.IDMode)
			if errors.Is(err, ErrSeatsExhausted) {
				log.Debug().Str("module", "service.room").Str("room_key", r.Key).Int("participants", len(r.Participants)).Msg("no free seat id, skipping room")
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("allocate seat in room %s: %w", r.Key, err)
			}
			room, id = r, seat
			break
		}

		if room == nil {
			result, err := s.createRoom(ctx)
			if errors.Is(err, repository.ErrDuplicateKey) {
				log.Warn().Str("module", "service.room").Int("attempt", attempt).Msg("room key collision, regenerating")
				continue
			}
			return result, err
		}

		room.Participants = append(room.Participants, id)

		err = s.roomRepo.Update(ctx, room, models.FieldParticipants)
		if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrRoomNotFound) {
			log.Debug().Str("module", "service.room").Str("room_key", room.Key).Int("attempt", attempt).Msg("join conflicted, rescanning")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update room %s: %w", room.Key, err)
		}

		room.Normalize()
		log.Info().Str("module", "service.room").Str("room_key", room.Key).Int("pid", id).Int("participants", len(room.Participants)).Msg("participant joined")
		s.broadcast(room)
		return &JoinResult{ID: id, Room: room}, nil
	}
	return nil, ErrTooMuchContention
}

// createRoom 建立只有一位參與者的新房間，題目與哲學家順序在此時打亂並固定
func (s *RoomService) createRoom(ctx context.Context) (*JoinResult, error) {
	var questions, philosophers []string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		texts, err := s.refRepo.QuestionTexts(gctx)
		questions = texts
		return err
	})
	g.Go(func() error {
		texts, err := s.refRepo.PhilosopherTexts(gctx)
		philosophers = texts
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load reference lists: %w", err)
	}

	s.opts.Shuffle(questions)
	s.opts.Shuffle(philosophers)

	key, err := s.opts.NewKey(s.opts.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("generate room key: %w", err)
	}

	room := &models.Room{
		Key:                  key,
		Participants:         []int{0},
		Questions:            questions,
		Philosophers:         philosophers,
		NextCounter:          0,
		CurrentQuestionIndex: 0,
		ChatTexts:            []models.ChatEntry{},
	}
	room.Normalize()

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room %s: %w", key, err)
	}

	log.Info().Str("module", "service.room").Str("room_key", key).Int("questions", len(questions)).Int("philosophers", len(philosophers)).Msg("room created")
	s.broadcast(room)
	return &JoinResult{ID: 0, Room: room}, nil
}

// RequestNext 推進房間的輪次指標
func (s *RoomService) RequestNext(ctx context.Context, key string) (*models.Room, error) {
	return s.mutate(ctx, key, func(room *models.Room) ([]models.RoomField, error) {
		room.NextCounter = AdvanceCounter(room.NextCounter, len(room.Participants))
		if room.NextCounter == 0 {
			log.Debug().Str("module", "service.room").Str("room_key", key).Msg("turn counter wrapped")
		}
		return []models.RoomField{models.FieldNextCounter}, nil
	})
}

// ParticipantLeave 從房間移除一個座位 ID；ID 不在房間內時不做任何寫入
func (s *RoomService) ParticipantLeave(ctx context.Context, key string, pid int) (bool, error) {
	var removed bool
	_, err := s.mutate(ctx, key, func(room *models.Room) ([]models.RoomField, error) {
		room.Participants, removed = removeFirst(room.Participants, pid)
		if !removed {
			return nil, nil
		}
		return []models.RoomField{models.FieldParticipants}, nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		log.Info().Str("module", "service.room").Str("room_key", key).Int("pid", pid).Msg("participant left")
	}
	return removed, nil
}

// AddChat 在房間聊天紀錄尾端加入一筆資料
func (s *RoomService) AddChat(ctx context.Context, key string, entry models.ChatEntry) (*models.Room, error) {
	if len(entry) == 0 {
		return nil, ErrInvalidChatEntry
	}
	return s.mutate(ctx, key, func(room *models.Room) ([]models.RoomField, error) {
		room.ChatTexts = append(room.ChatTexts, entry)
		return []models.RoomField{models.FieldChatTexts}, nil
	})
}

func (s *RoomService) GetRoom(ctx context.Context, key string) (*models.Room, error) {
	room, err := s.roomRepo.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	room.Normalize()
	return room, nil
}

// mutate 讀取房間、套用修改並以版本號條件寫回，衝突時重新讀取再試
func (s *RoomService) mutate(ctx context.Context, key string, fn func(room *models.Room) ([]models.RoomField, error)) (*models.Room, error) {
	for attempt := 1; attempt <= s.opts.MaxUpdateAttempts; attempt++ {
		room, err := s.roomRepo.FindByKey(ctx, key)
		if err != nil {
			return nil, err
		}

		fields, err := fn(room)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			room.Normalize()
			return room, nil
		}

		err = s.roomRepo.Update(ctx, room, fields...)
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Debug().Str("module", "service.room").Str("room_key", key).Int("attempt", attempt).Msg("update conflicted, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		room.Normalize()
		s.broadcast(room)
		return room, nil
	}
	return nil, ErrTooMuchContention
}

func (s *RoomService) broadcast(room *models.Room) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastRoom(room)
}
