package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
	"github.com/emilythestrangee/qna-forum/backend/internal/tally"
)

// PostHandler serves the endpoints shared by questions and answers.
type PostHandler struct {
	engine *tally.Engine
	log    logrus.FieldLogger
}

func NewPostHandler(engine *tally.Engine, log logrus.FieldLogger) *PostHandler {
	return &PostHandler{engine: engine, log: log}
}

// VoteQuestion votes on the question in the path
func (h *PostHandler) VoteQuestion(c *gin.Context) {
	h.vote(c, models.QuestionRef(c.Param("id")))
}

// VoteAnswer votes on the answer in the path
func (h *PostHandler) VoteAnswer(c *gin.Context) {
	h.vote(c, models.AnswerRef(c.Param("id")))
}

func (h *PostHandler) vote(c *gin.Context, ref models.PostRef) {
	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.engine.SubmitVote(c.Request.Context(), middleware.CallerFrom(c), ref, input.VoteType, input.Remove)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
