package models

import (
	"slices"
	"time"
)

// Room 表示一個討論房間
type Room struct {
	Key                  string      `gorm:"column:room_key;primaryKey;size:64" bson:"_id" json:"key"`
	Participants         []int       `gorm:"serializer:json;type:jsonb;not null" bson:"participants" json:"participants"`
	Questions            []string    `gorm:"serializer:json;type:jsonb;not null" bson:"questions" json:"questions"`
	Philosophers         []string    `gorm:"serializer:json;type:jsonb;not null" bson:"philosophers" json:"philosophers"`
	NextCounter          int         `gorm:"not null" bson:"nextCounter" json:"nextCounter"`
	CurrentQuestionIndex int         `gorm:"not null" bson:"currentQuestionIndex" json:"currentQuestionIndex"`
	ChatTexts            []ChatEntry `gorm:"serializer:json;type:jsonb;not null" bson:"chatTexts" json:"chatTexts"`
	Version              int64       `gorm:"not null" bson:"version" json:"-"` // 樂觀鎖版本號
	CreatedAt            time.Time   `bson:"createdAt" json:"-"`
	UpdatedAt            time.Time   `bson:"updatedAt" json:"-"`
}

// TableName 指定房間的資料表名稱
func (Room) TableName() string {
	return "rooms"
}

// ChatEntry 是一筆聊天紀錄，內容原樣保存與回傳
type ChatEntry map[string]interface{}

// RoomField 是可以單獨更新的房間欄位
type RoomField string

const (
	FieldParticipants         RoomField = "participants"
	FieldNextCounter          RoomField = "nextCounter"
	FieldCurrentQuestionIndex RoomField = "currentQuestionIndex"
	FieldChatTexts            RoomField = "chatTexts"
)

// HasCapacity 判斷房間是否還有空位
func (r *Room) HasCapacity(size int) bool {
	return len(r.Participants) < size
}

// Normalize 把 nil 列表換成空列表，避免 JSON 輸出 null
func (r *Room) Normalize() {
	if r.Participants == nil {
		r.Participants = []int{}
	}
	if r.Questions == nil {
		r.Questions = []string{}
	}
	if r.Philosophers == nil {
		r.Philosophers = []string{}
	}
	if r.ChatTexts == nil {
		r.ChatTexts = []ChatEntry{}
	}
}

// Clone 深拷貝房間，讓呼叫者可以安全修改列表
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = slices.Clone(r.Participants)
	c.Questions = slices.Clone(r.Questions)
	c.Philosophers = slices.Clone(r.Philosophers)
	if r.ChatTexts != nil {
		c.ChatTexts = make([]ChatEntry, len(r.ChatTexts))
		for i, entry := range r.ChatTexts {
			cp := make(ChatEntry, len(entry))
			for k, v := range entry {
				cp[k] = v
			}
			c.ChatTexts[i] = cp
		}
	}
	return &c
}
