package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"philo_rooms/internal/models"
)

func TestMemoryRoomRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRoomRepository()

	require.NoError(t, repo.Create(ctx, &models.Room{Key: "b", Participants: []int{0}}))
	require.NoError(t, repo.Create(ctx, &models.Room{Key: "a", Participants: []int{0, 1}}))

	err := repo.Create(ctx, &models.Room{Key: "a"})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	rooms, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "b", rooms[0].Key, "rooms come back in creation order")
	assert.Equal(t, "a", rooms[1].Key)

	_, err = repo.FindByKey(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryRoomRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRoomRepository()
	require.NoError(t, repo.Create(ctx, &models.Room{Key: "k", Participants: []int{0}}))

	room, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	room.Participants = append(room.Participants, 1)

	again, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, again.Participants)
}

func TestMemoryRoomRepository_UpdateOnlyNamedFields(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRoomRepository()
	require.NoError(t, repo.Create(ctx, &models.Room{Key: "k", Participants: []int{0}, NextCounter: 0}))

	room, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	room.Participants = []int{0, 1}
	room.NextCounter = 3

	require.NoError(t, repo.Update(ctx, room, models.FieldParticipants))
	assert.Equal(t, int64(1), room.Version)

	stored, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, stored.Participants)
	assert.Equal(t, 0, stored.NextCounter, "unnamed field must not be written")
	assert.Equal(t, int64(1), stored.Version)
}

func TestMemoryRoomRepository_UpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRoomRepository()
	require.NoError(t, repo.Create(ctx, &models.Room{Key: "k", Participants: []int{0}}))

	first, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)
	second, err := repo.FindByKey(ctx, "k")
	require.NoError(t, err)

	first.NextCounter = 1
	require.NoError(t, repo.Update(ctx, first, models.FieldNextCounter))

	second.NextCounter = 1
	err = repo.Update(ctx, second, models.FieldNextCounter)
	assert.ErrorIs(t, err, ErrVersionConflict)

	err = repo.Update(ctx, &models.Room{Key: "missing"}, models.FieldNextCounter)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestMemoryReferenceRepository_Replace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryReferenceRepository()

	require.NoError(t, repo.ReplaceQuestions(ctx, []string{"Q1", "Q2"}))
	require.NoError(t, repo.ReplacePhilosophers(ctx, []string{"P1"}))
	require.NoError(t, repo.ReplaceQuestions(ctx, []string{"Q3"}))

	questions, err := repo.QuestionTexts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q3"}, questions)

	philosophers, err := repo.PhilosopherTexts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, philosophers)
}
