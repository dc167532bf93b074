package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"philo_rooms/internal/models"
	"philo_rooms/internal/repository"
)

type recordingBroadcaster struct {
	mu    sync.Mutex
	rooms []*models.Room
}

func (b *recordingBroadcaster) BroadcastRoom(room *models.Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, room.Clone())
}

func (b *recordingBroadcaster) last() *models.Room {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rooms) == 0 {
		return nil
	}
	return b.rooms[len(b.rooms)-1]
}

// conflictingRoomRepository 讓前 conflicts 次 Update 回傳版本衝突
type conflictingRoomRepository struct {
	repository.RoomRepository
	conflicts int
	updates   int
}

func (r *conflictingRoomRepository) Update(ctx context.Context, room *models.Room, fields ...models.RoomField) error {
	r.updates++
	if r.updates <= r.conflicts {
		return repository.ErrVersionConflict
	}
	return r.RoomRepository.Update(ctx, room, fields...)
}

func sequentialKeys() func(int) (string, error) {
	var (
		mu sync.Mutex
		n  int
	)
	return func(int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("room%04d", n), nil
	}
}

func philosopherNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("P%d", i)
	}
	return names
}

type fixture struct {
	svc   *RoomService
	rooms *repository.MemoryRoomRepository
	refs  *repository.MemoryReferenceRepository
	bc    *recordingBroadcaster
}

func newFixture(t *testing.T, questions, philosophers []string, opts RoomOptions) *fixture {
	t.Helper()
	ctx := context.Background()

	rooms := repository.NewMemoryRoomRepository()
	refs := repository.NewMemoryReferenceRepository()
	require.NoError(t, refs.ReplaceQuestions(ctx, questions))
	require.NoError(t, refs.ReplacePhilosophers(ctx, philosophers))

	if opts.NewKey == nil {
		opts.NewKey = sequentialKeys()
	}
	bc := &recordingBroadcaster{}
	return &fixture{
		svc:   NewRoomService(rooms, refs, bc, opts),
		rooms: rooms,
		refs:  refs,
		bc:    bc,
	}
}

func TestAddParticipant_FirstJoinCreatesRoom(t *testing.T) {
	f := newFixture(t, []string{"Q1", "Q2"}, []string{"P1", "P2"}, RoomOptions{})

	res, err := f.svc.AddParticipant(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.ID)
	assert.Equal(t, "room0001", res.Key)
	assert.Equal(t, []int{0}, res.Participants)
	assert.ElementsMatch(t, []string{"Q1", "Q2"}, res.Questions)
	assert.ElementsMatch(t, []string{"P1", "P2"}, res.Philosophers)
	assert.Equal(t, 0, res.NextCounter)
	assert.Equal(t, 0, res.CurrentQuestionIndex)
	assert.NotNil(t, res.ChatTexts)
	assert.Empty(t, res.ChatTexts)

	stored, err := f.rooms.FindByKey(context.Background(), res.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Questions, stored.Questions)
}

func TestAddParticipant_FillsRoomsSequentially(t *testing.T) {
	f := newFixture(t, []string{"Q1"}, philosopherNames(12), RoomOptions{})
	ctx := context.Background()

	const joins = 25
	for i := 0; i < joins; i++ {
		_, err := f.svc.AddParticipant(ctx)
		require.NoError(t, err, "join %d", i)
	}

	rooms, err := f.rooms.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)

	total := 0
	for _, room := range rooms {
		assert.LessOrEqual(t, len(room.Participants), 10)
		sorted := slices.Clone(room.Participants)
		slices.Sort(sorted)
		assert.Equal(t, len(sorted), len(slices.Compact(sorted)), "duplicate ids in %v", room.Participants)
		total += len(room.Participants)
	}
	assert.Equal(t, joins, total)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, rooms[0].Participants)
	assert.Len(t, rooms[2].Participants, 5)
}

func TestAddParticipant_JoinsExistingRoomAndInheritsState(t *testing.T) {
	f := newFixture(t, []string{"Q1", "Q2", "Q3"}, philosopherNames(10), RoomOptions{})
	ctx := context.Background()

	first, err := f.svc.AddParticipant(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddChat(ctx, first.Key, models.ChatEntry{"text": "hello"})
	require.NoError(t, err)

	second, err := f.svc.AddParticipant(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, second.ID)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, []int{0, 1}, second.Participants)
	assert.Equal(t, first.Questions, second.Questions)
	assert.Equal(t, first.Philosophers, second.Philosophers)
	require.Len(t, second.ChatTexts, 1)
	assert.Equal(t, "hello", second.ChatTexts[0]["text"])
}

func TestAddParticipant_IDModes(t *testing.T) {
	cases := []struct {
		mode IDMode
		want int
	}{
		{mode: IDModeLegacy, want: 12},
		{mode: IDModeStrict, want: 2},
	}

	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			f := newFixture(t, nil, nil, RoomOptions{IDMode: tc.mode})
			ctx := context.Background()
			require.NoError(t, f.rooms.Create(ctx, &models.Room{
				Key:          "seeded",
				Participants: []int{0, 1, 8, 9},
				Philosophers: philosopherNames(10),
			}))

			res, err := f.svc.AddParticipant(ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.ID)
			assert.Equal(t, []int{0, 1, 8, 9, tc.want}, res.Participants)
		})
	}
}

func TestAddParticipant_RegeneratesKeyOnCollision(t *testing.T) {
	keys := []string{"taken", "fresh"}
	f := newFixture(t, nil, nil, RoomOptions{
		NewKey: func(int) (string, error) {
			k := keys[0]
			keys = keys[1:]
			return k, nil
		},
	})
	ctx := context.Background()
	require.NoError(t, f.rooms.Create(ctx, &models.Room{
		Key:          "taken",
		Participants: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	}))

	res, err := f.svc.AddParticipant(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Key)
	assert.Equal(t, []int{0}, res.Participants)
}

func TestAddParticipant_RetriesOnConflict(t *testing.T) {
	f := newFixture(t, nil, philosopherNames(10), RoomOptions{})
	ctx := context.Background()
	_, err := f.svc.AddParticipant(ctx)
	require.NoError(t, err)

	conflicting := &conflictingRoomRepository{RoomRepository: f.rooms, conflicts: 2}
	svc := NewRoomService(conflicting, f.refs, nil, RoomOptions{MaxUpdateAttempts: 3})

	res, err := svc.AddParticipant(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ID)
	assert.Equal(t, 3, conflicting.updates)
}

func TestRequestNext(t *testing.T) {
	cases := []struct {
		name         string
		participants []int
		counter      int
		want         int
	}{
		{name: "advances below half", participants: []int{0, 1, 2, 3}, counter: 0, want: 1},
		{name: "advances up to half", participants: []int{0, 1, 2, 3}, counter: 1, want: 2},
		{name: "wraps above half", participants: []int{0, 1, 2, 3}, counter: 2, want: 0},
		{name: "odd count wraps past 1.5", participants: []int{0, 1, 2}, counter: 1, want: 0},
		{name: "single participant always wraps", participants: []int{0}, counter: 0, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil, nil, RoomOptions{})
			ctx := context.Background()
			require.NoError(t, f.rooms.Create(ctx, &models.Room{
				Key:          "r",
				Participants: tc.participants,
				NextCounter:  tc.counter,
			}))

			room, err := f.svc.RequestNext(ctx, "r")
			require.NoError(t, err)
			assert.Equal(t, tc.want, room.NextCounter)

			stored, err := f.rooms.FindByKey(ctx, "r")
			require.NoError(t, err)
			assert.Equal(t, tc.want, stored.NextCounter)
			assert.Equal(t, tc.want, f.bc.last().NextCounter)
		})
	}
}

func TestRequestNext_UnknownRoom(t *testing.T) {
	f := newFixture(t, nil, nil, RoomOptions{})
	_, err := f.svc.RequestNext(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestRequestNext_GivesUpAfterRepeatedConflicts(t *testing.T) {
	rooms := repository.NewMemoryRoomRepository()
	ctx := context.Background()
	require.NoError(t, rooms.Create(ctx, &models.Room{Key: "r", Participants: []int{0, 1}}))

	conflicting := &conflictingRoomRepository{RoomRepository: rooms, conflicts: 10}
	svc := NewRoomService(conflicting, repository.NewMemoryReferenceRepository(), nil, RoomOptions{MaxUpdateAttempts: 4})

	_, err := svc.RequestNext(ctx, "r")
	assert.ErrorIs(t, err, ErrTooMuchContention)
	assert.Equal(t, 4, conflicting.updates)
}

func TestParticipantLeave(t *testing.T) {
	f := newFixture(t, nil, nil, RoomOptions{})
	ctx := context.Background()
	require.NoError(t, f.rooms.Create(ctx, &models.Room{Key: "r", Participants: []int{0, 1, 2}}))

	removed, err := f.svc.ParticipantLeave(ctx, "r", 1)
	require.NoError(t, err)
	assert.True(t, removed)

	stored, err := f.rooms.FindByKey(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, stored.Participants)
	assert.Equal(t, int64(1), stored.Version)

	removed, err = f.svc.ParticipantLeave(ctx, "r", 7)
	require.NoError(t, err)
	assert.False(t, removed)

	stored, err = f.rooms.FindByKey(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, stored.Participants)
	assert.Equal(t, int64(1), stored.Version, "absent id must not write")

	_, err = f.svc.ParticipantLeave(ctx, "missing", 0)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestAddChat(t *testing.T) {
	f := newFixture(t, nil, nil, RoomOptions{})
	ctx := context.Background()
	require.NoError(t, f.rooms.Create(ctx, &models.Room{Key: "r", Participants: []int{0}}))

	_, err := f.svc.AddChat(ctx, "r", models.ChatEntry{})
	assert.ErrorIs(t, err, ErrInvalidChatEntry)

	room, err := f.svc.AddChat(ctx, "r", models.ChatEntry{"pid": float64(0), "text": "hi"})
	require.NoError(t, err)
	require.Len(t, room.ChatTexts, 1)
	assert.Equal(t, "hi", room.ChatTexts[0]["text"])
}

func TestGetRoom_NormalizesLists(t *testing.T) {
	f := newFixture(t, nil, nil, RoomOptions{})
	ctx := context.Background()
	require.NoError(t, f.rooms.Create(ctx, &models.Room{Key: "r"}))

	room, err := f.svc.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.NotNil(t, room.Participants)
	assert.NotNil(t, room.ChatTexts)
}

func TestAddParticipant_FewerPhilosophersThanSeats(t *testing.T) {
	f := newFixture(t, []string{"Q1", "Q2"}, []string{"P1", "P2"}, RoomOptions{})
	ctx := context.Background()

	want := []struct {
		id  int
		key string
	}{
		{id: 0, key: "room0001"},
		{id: 1, key: "room0001"},
		{id: 0, key: "room0002"},
		{id: 1, key: "room0002"},
		{id: 0, key: "room0003"},
	}
	for i, w := range want {
		res, err := f.svc.AddParticipant(ctx)
		require.NoError(t, err, "join %d", i)
		assert.Equal(t, w.id, res.ID, "join %d", i)
		assert.Equal(t, w.key, res.Key, "join %d", i)
	}

	rooms, err := f.rooms.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, []int{0, 1}, rooms[0].Participants)
	assert.Equal(t, []int{0, 1}, rooms[1].Participants)
	assert.Equal(t, []int{0}, rooms[2].Participants)
}

func TestAddParticipant_ConcurrentJoinsRespectCapacity(t *testing.T) {
	f := newFixture(t, []string{"Q1"}, philosopherNames(10), RoomOptions{MaxUpdateAttempts: 100})
	ctx := context.Background()

	first, err := f.svc.AddParticipant(ctx)
	require.NoError(t, err)

	const joins = 9
	var wg sync.WaitGroup
	errs := make(chan error, joins)
	for i := 0; i < joins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddParticipant(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rooms, err := f.rooms.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, first.Key, rooms[0].Key)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, rooms[0].Participants)
}
