package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"philo_rooms/internal/models"
	"philo_rooms/internal/storage"
)

const (
	roomsCollection        = "rooms"
	questionsCollection    = "questions"
	philosophersCollection = "philosophers"
)

type mongoRoomRepository struct {
	rooms *mongo.Collection
}

func NewMongoRoomRepository(db *storage.MongoDB) RoomRepository {
	return &mongoRoomRepository{rooms: db.Collection(roomsCollection)}
}

// FindAll 以集合的自然順序回傳所有房間
func (r *mongoRoomRepository) FindAll(ctx context.Context) ([]*models.Room, error) {
	cur, err := r.rooms.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	var rooms []*models.Room
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *mongoRoomRepository) FindByKey(ctx context.Context, key string) (*models.Room, error) {
	var room models.Room
	err := r.rooms.FindOne(ctx, bson.M{"_id": key}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *mongoRoomRepository) Create(ctx context.Context, room *models.Room) error {
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now
	_, err := r.rooms.InsertOne(ctx, room)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (r *mongoRoomRepository) Update(ctx context.Context, room *models.Room, fields ...models.RoomField) error {
	now := time.Now()
	set := bson.M{
		"version":   room.Version + 1,
		"updatedAt": now,
	}
	for _, f := range fields {
		switch f {
		case models.FieldParticipants:
			set[string(f)] = room.Participants
		case models.FieldNextCounter:
			set[string(f)] = room.NextCounter
		case models.FieldCurrentQuestionIndex:
			set[string(f)] = room.CurrentQuestionIndex
		case models.FieldChatTexts:
			set[string(f)] = room.ChatTexts
		default:
			return fmt.Errorf("unknown room field: %s", f)
		}
	}

	res, err := r.rooms.UpdateOne(ctx,
		bson.M{"_id": room.Key, "version": room.Version},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		n, err := r.rooms.CountDocuments(ctx, bson.M{"_id": room.Key}, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrRoomNotFound
		}
		return ErrVersionConflict
	}

	room.Version++
	room.UpdatedAt = now
	return nil
}

type mongoReferenceRepository struct {
	questions    *mongo.Collection
	philosophers *mongo.Collection
}

func NewMongoReferenceRepository(db *storage.MongoDB) ReferenceRepository {
	return &mongoReferenceRepository{
		questions:    db.Collection(questionsCollection),
		philosophers: db.Collection(philosophersCollection),
	}
}

func (r *mongoReferenceRepository) QuestionTexts(ctx context.Context) ([]string, error) {
	return readTexts(ctx, r.questions)
}

func (r *mongoReferenceRepository) PhilosopherTexts(ctx context.Context) ([]string, error) {
	return readTexts(ctx, r.philosophers)
}

func (r *mongoReferenceRepository) ReplaceQuestions(ctx context.Context, texts []string) error {
	return replaceTexts(ctx, r.questions, texts)
}

func (r *mongoReferenceRepository) ReplacePhilosophers(ctx context.Context, texts []string) error {
	return replaceTexts(ctx, r.philosophers, texts)
}

// readTexts 讀出集合中每份文件的 text 欄位
func readTexts(ctx context.Context, coll *mongo.Collection) ([]string, error) {
	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetProjection(bson.M{"text": 1}))
	if err != nil {
		return nil, err
	}
	var docs []struct {
		Text string `bson:"text"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out, nil
}

// replaceTexts 清空集合後重新寫入；單機 mongo 沒有交易，中途失敗需要重新執行 seed
func replaceTexts(ctx context.Context, coll *mongo.Collection, texts []string) error {
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return err
	}
	if len(texts) == 0 {
		return nil
	}
	docs := make([]interface{}, len(texts))
	for i, text := range texts {
		docs[i] = bson.M{"text": text}
	}
	_, err := coll.InsertMany(ctx, docs)
	return err
}
