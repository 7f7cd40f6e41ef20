package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

type QuestionHandler struct {
	reader  *forum.Reader
	service *forum.Service
	log     logrus.FieldLogger
}

func NewQuestionHandler(reader *forum.Reader, service *forum.Service, log logrus.FieldLogger) *QuestionHandler {
	return &QuestionHandler{reader: reader, service: service, log: log}
}

// listOptions reads ?limit= and ?order=oldest|newest.
func listOptions(c *gin.Context) (forum.ListOptions, error) {
	var opts forum.ListOptions
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return opts, errors.Errorf("invalid limit %q", raw)
		}
		opts.Limit = n
	}
	switch c.DefaultQuery("order", "newest") {
	case "newest":
	case "oldest":
		opts.Oldest = true
	default:
		return opts, errors.Errorf("invalid order %q", c.Query("order"))
	}
	return opts, nil
}

// GetQuestions lists questions across every subject
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	questions, err := h.reader.GetAll(c.Request.Context(), middleware.CallerFrom(c), opts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *QuestionHandler) GetQuestionsBySubject(c *gin.Context) {
	opts, err := listOptions(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	subject := models.Subject(c.Param("subject"))
	questions, err := h.reader.GetBySubject(c.Request.Context(), middleware.CallerFrom(c), subject, opts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// CountBySubject returns the number of questions in each subject
func (h *QuestionHandler) CountBySubject(c *gin.Context) {
	counts, err := h.reader.CountBySubject(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// GetQuestion returns a question with its comments and answers
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	q, err := h.reader.GetByID(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// CreateQuestion creates a new question (PROTECTED - requires authentication)
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input models.CreateQuestionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.service.CreateQuestion(c.Request.Context(), middleware.CallerFrom(c), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// UpdateQuestion updates an existing question (PROTECTED - requires ownership)
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	var input models.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	q, err := h.service.UpdateQuestion(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), input)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// DeleteQuestion deletes a question and everything under it (PROTECTED - requires ownership)
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	if err := h.service.DeleteQuestion(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

// RecordView counts one view of a question. Anonymous views count too.
func (h *QuestionHandler) RecordView(c *gin.Context) {
	if err := h.service.RecordView(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
