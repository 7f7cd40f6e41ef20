package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

type CommentHandler struct {
	service *forum.Service
	log     logrus.FieldLogger
}

func NewCommentHandler(service *forum.Service, log logrus.FieldLogger) *CommentHandler {
	return &CommentHandler{service: service, log: log}
}

func (h *CommentHandler) CommentOnQuestion(c *gin.Context) {
	h.create(c, models.QuestionRef(c.Param("id")))
}

func (h *CommentHandler) CommentOnAnswer(c *gin.Context) {
	h.create(c, models.AnswerRef(c.Param("id")))
}

func (h *CommentHandler) create(c *gin.Context, ref models.PostRef) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	comment, err := h.service.CreateComment(c.Request.Context(), middleware.CallerFrom(c), ref, input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// DeleteComment deletes a comment (PROTECTED - author only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	if err := h.service.DeleteComment(c.Request.Context(), middleware.CallerFrom(c), c.Param("commentId")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
