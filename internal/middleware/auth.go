package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qna-forum/backend/internal/authz"
	"github.com/emilythestrangee/qna-forum/backend/internal/cache"
	"github.com/emilythestrangee/qna-forum/backend/internal/models"
)

const (
	userIDKey   = "user_id"
	usernameKey = "username"
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 72 * time.Hour

// SignToken issues the bearer token handed out at register and login.
func SignToken(secret []byte, u models.User, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(TokenTTL).Unix(),
	})
	s, err := token.SignedString(secret)
	return s, errors.Wrap(err, "sign token")
}

// Auth resolves the bearer token on a request into an authz.Caller.
type Auth struct {
	secret []byte
	db     *gorm.DB
	ids    *cache.Identities
	log    logrus.FieldLogger
}

func NewAuth(secret []byte, db *gorm.DB, ids *cache.Identities, log logrus.FieldLogger) *Auth {
	return &Auth{secret: secret, db: db, ids: ids, log: log}
}

// Required rejects requests that do not carry a valid session.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.identify(c)
		if err != nil {
			a.log.WithError(err).WithField("path", c.FullPath()).Debug("rejected session")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please log in"})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// Optional attaches the caller when a valid session is present and lets
// anonymous requests through otherwise.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if id, err := a.identify(c); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

func (a *Auth) identify(c *gin.Context) (cache.Identity, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return cache.Identity{}, errors.New("authorization token not provided")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return cache.Identity{}, errors.New("invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return cache.Identity{}, errors.Wrap(err, "invalid or expired token")
	}
	if !token.Valid {
		return cache.Identity{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return cache.Identity{}, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return cache.Identity{}, errors.New("invalid user id in token")
	}

	ctx := c.Request.Context()
	if id, ok := a.ids.Get(ctx, userID); ok {
		return id, nil
	}

	var u models.User
	if err := a.db.WithContext(ctx).Select("id", "username").Where("id = ?", userID).Take(&u).Error; err != nil {
		return cache.Identity{}, errors.Wrap(err, "user from token")
	}
	id := cache.Identity{UserID: u.ID, Username: u.Username}
	a.ids.Set(ctx, id)
	return id, nil
}

func setIdentity(c *gin.Context, id cache.Identity) {
	c.Set(userIDKey, id.UserID)
	c.Set(usernameKey, id.Username)
}

// CallerFrom returns the identity the auth middleware attached, or
// authz.Anonymous.
func CallerFrom(c *gin.Context) authz.Caller {
	return authz.User(c.GetString(userIDKey))
}
