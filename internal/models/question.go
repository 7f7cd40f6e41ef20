package models

import "time"

type Question struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"not null" json:"content"`
	Subject   Subject   `gorm:"index;not null" json:"subject"`
	Form      Form      `gorm:"not null" json:"form"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Tags      []Tag     `gorm:"many2many:question_tags" json:"tags"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (q Question) Ref() PostRef { return QuestionRef(q.ID) }
func (q Question) OwnerID() string { return q.UserID }

type CreateQuestionRequest struct {
	Title   string   `json:"title" binding:"required,max=300"`
	Content string   `json:"content" binding:"required"`
	Subject Subject  `json:"subject" binding:"required"`
	Form    Form     `json:"form" binding:"required"`
	Tags    []string `json:"tags"`
}

// UpdateQuestionRequest leaves a field untouched when it is empty.
type UpdateQuestionRequest struct {
	Title   string   `json:"title" binding:"max=300"`
	Content string   `json:"content"`
	Subject Subject  `json:"subject"`
	Form    Form     `json:"form"`
	Tags    []string `json:"tags"`
}
