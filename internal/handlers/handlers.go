package handlers

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/ledger"
	"github.com/emilythestrangee/qna-forum/backend/internal/tally"
)

// Handler combines all handler types
type Handler struct {
	Auth     *AuthHandler
	Question *QuestionHandler
	Answer   *AnswerHandler
	Post     *PostHandler
	Comment  *CommentHandler
	User     *UserHandler
}

// Deps is what the handlers are built from.
type Deps struct {
	DB        *gorm.DB
	JWTSecret []byte
	Log       logrus.FieldLogger
}

// NewHandler wires the forum services and creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	votes := ledger.New(d.DB)
	engine := tally.NewEngine(votes, d.Log)
	reader := forum.NewReader(d.DB, votes)
	service := forum.NewService(d.DB, votes, d.Log)

	return &Handler{
		Auth:     NewAuthHandler(d.DB, reader, d.JWTSecret, d.Log),
		Question: NewQuestionHandler(reader, service, d.Log),
		Answer:   NewAnswerHandler(service, d.Log),
		Post:     NewPostHandler(engine, d.Log),
		Comment:  NewCommentHandler(service, d.Log),
		User:     NewUserHandler(reader, d.Log),
	}
}
