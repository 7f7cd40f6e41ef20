package models

import "time"

// Comment belongs to exactly one question or answer and is deleted with it.
type Comment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	PostKind  PostKind  `gorm:"index:idx_comment_post;size:16;not null" json:"post_kind"`
	PostID    string    `gorm:"index:idx_comment_post;size:36;not null" json:"post_id"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Comment) Post() PostRef { return PostRef{Kind: c.PostKind, ID: c.PostID} }

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}
