package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
)

type UserHandler struct {
	reader *forum.Reader
	log    logrus.FieldLogger
}

func NewUserHandler(reader *forum.Reader, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{reader: reader, log: log}
}

// GetUserProfile returns a user's profile with their questions and answers
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	profile, err := h.reader.Profile(c.Request.Context(), middleware.CallerFrom(c), c.Param("username"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
