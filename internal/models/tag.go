package models

import "time"

type Tag struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
}

// View is an append-only record of a question being opened.
type View struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	QuestionID string    `gorm:"index;size:36;not null" json:"question_id"`
	UserID     *string   `gorm:"size:36" json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
