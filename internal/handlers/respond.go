package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
)

// respondError maps a forum error onto a status code. Only typed client
// errors echo their message; anything else is logged and reported generically.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	_ = c.Error(err)

	if !apperr.Client(err) {
		entry := log.WithError(err).WithField("path", c.FullPath())
		if apperr.Retryable(err) {
			entry.Warn("storage unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service busy, please retry"})
			return
		}
		entry.Errorf("request failed: %+v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	switch {
	case stderrors.Is(err, apperr.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please log in"})
	case stderrors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only change your own posts"})
	case stderrors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case stderrors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
