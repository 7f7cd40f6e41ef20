package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

type AnswerHandler struct {
	service *forum.Service
	log     logrus.FieldLogger
}

func NewAnswerHandler(service *forum.Service, log logrus.FieldLogger) *AnswerHandler {
	return &AnswerHandler{service: service, log: log}
}

// CreateAnswer answers the question in the path
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	var input models.CreateAnswerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.service.CreateAnswer(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	var input models.UpdateAnswerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	a, err := h.service.UpdateAnswer(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	if err := h.service.DeleteAnswer(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}
