package models

import "time"

type Answer struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Content    string    `gorm:"not null" json:"content"`
	QuestionID string    `gorm:"index;size:36;not null" json:"question_id"`
	UserID     string    `gorm:"index;size:36;not null" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a Answer) Ref() PostRef { return AnswerRef(a.ID) }
func (a Answer) OwnerID() string { return a.UserID }

type CreateAnswerRequest struct {
	Content string `json:"content" binding:"required"`
}

type UpdateAnswerRequest struct {
	Content string `json:"content" binding:"required"`
}
