package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
	"github.com/emilythestrangee/qna-forum/backend/internal/forum"
	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

type AuthHandler struct {
	db     *gorm.DB
	reader *forum.Reader
	secret []byte
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewAuthHandler(db *gorm.DB, reader *forum.Reader, secret []byte, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{db: db, reader: reader, secret: secret, log: log, now: time.Now}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	ctx := c.Request.Context()

	// Check if username or email already exists
	var n int64
	err := h.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", input.Username, input.Email).
		Count(&n).Error
	if err != nil {
		respondError(c, h.log, apperr.Storage(err, "check existing user"))
		return
	}
	if n > 0 {
		respondError(c, h.log, errors.Wrap(apperr.ErrConflict, "username or email already exists"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.log, errors.Wrap(err, "hash password"))
		return
	}

	user := models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: string(hashedPassword),
		Avatar:   input.Avatar,
	}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			err = errors.Wrap(apperr.ErrConflict, "username or email already exists")
		} else {
			err = apperr.Storage(err, "create user")
		}
		respondError(c, h.log, err)
		return
	}

	// Generate JWT token AFTER creating user
	token, err := middleware.SignToken(h.secret, user, h.now())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.WithFields(logrus.Fields{"user": user.ID, "username": user.Username}).Info("user registered")
	c.JSON(http.StatusCreated, models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).
		Take(&user).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, h.log, apperr.Storage(err, "load user"))
		return
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := middleware.SignToken(h.secret, user, h.now())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.reader.Me(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
