package forum

import (
	"time"

	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

// Author is the public face of a user on a post.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func authorOf(u models.User) Author {
	return Author{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// QuestionSummary is a question as shown in lists.
type QuestionSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Content       string           `json:"content"`
	Subject       models.Subject   `json:"subject"`
	Form          models.Form      `json:"form"`
	Tags          []string         `json:"tags"`
	Author        Author           `json:"user"`
	Score         int              `json:"votes_count"`
	Vote          models.Direction `json:"viewer_vote"`
	AnswersCount  int              `json:"answers_count"`
	CommentsCount int              `json:"comments_count"`
	ViewsCount    int              `json:"views_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// QuestionDetail is a question page: the summary plus its thread.
type QuestionDetail struct {
	QuestionSummary
	Comments []CommentView `json:"comments"`
	Answers  []AnswerView  `json:"answers"`
}

type AnswerView struct {
	ID            string           `json:"id"`
	QuestionID    string           `json:"question_id"`
	Content       string           `json:"content"`
	Author        Author           `json:"user"`
	Score         int              `json:"votes_count"`
	Vote          models.Direction `json:"viewer_vote"`
	CommentsCount int              `json:"comments_count"`
	Comments      []CommentView    `json:"comments,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type CommentView struct {
	ID        string          `json:"id"`
	PostKind  models.PostKind `json:"post_kind"`
	PostID    string          `json:"post_id"`
	Content   string          `json:"content"`
	Author    Author          `json:"user"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func commentView(c models.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		PostKind:  c.PostKind,
		PostID:    c.PostID,
		Content:   c.Content,
		Author:    authorOf(c.User),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// QuestionRef is the parent question shown next to an answer on a profile.
type QuestionRef struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Subject models.Subject `json:"subject"`
	Form    models.Form    `json:"form"`
	Tags    []string       `json:"tags"`
}

type ProfileAnswer struct {
	AnswerView
	Question QuestionRef `json:"question"`
}

// Profile is a user's page: who they are and what they posted.
type Profile struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Bio       string            `json:"bio"`
	Avatar    string            `json:"avatar"`
	CreatedAt time.Time         `json:"created_at"`
	Questions []QuestionSummary `json:"questions"`
	Answers   []ProfileAnswer   `json:"answers"`
}

func tagNames(tags []models.Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names
}
