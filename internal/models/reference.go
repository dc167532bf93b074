package models

// Question 是題庫中的一個討論問題
type Question struct {
	ID   uint   `gorm:"primaryKey" bson:"-" json:"id"`
	Text string `gorm:"type:text;not null" bson:"text" json:"text"`
}

// Philosopher 是可分配給參與者的哲學家
type Philosopher struct {
	ID   uint   `gorm:"primaryKey" bson:"-" json:"id"`
	Text string `gorm:"type:text;not null" bson:"text" json:"text"`
}
