package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/qna-forum/backend/internal/cache"
	"github.com/emilythestrangee/qna-forum/backend/internal/config"
	"github.com/emilythestrangee/qna-forum/backend/internal/database"
	"github.com/emilythestrangee/qna-forum/backend/internal/handlers"
	"github.com/emilythestrangee/qna-forum/backend/internal/middleware"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
	auth    *middleware.Auth
	log     logrus.FieldLogger
}

func New(cfg *config.Config, db database.Service, ids *cache.Identities, log logrus.FieldLogger) *Server {
	return &Server{
		cfg: cfg,
		db:  db,
		handler: handlers.NewHandler(handlers.Deps{
			DB:        db.GetDB(),
			JWTSecret: cfg.JWTSecret,
			Log:       log,
		}),
		auth: middleware.NewAuth(cfg.JWTSecret, db.GetDB(), ids, log),
		log:  log,
	}
}

// HTTPServer wraps the routes in an http.Server listening on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.RequestTimeout + 20*time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(s.log))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.Use(middleware.Timeout(s.cfg.RequestTimeout))
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Public reads; a signed-in caller also sees their own votes
		public := api.Group("")
		public.Use(s.auth.Optional())
		{
			public.GET("/questions", s.handler.Question.GetQuestions)
			public.GET("/questions/:id", s.handler.Question.GetQuestion)
			public.POST("/questions/:id/view", s.handler.Question.RecordView)
			public.GET("/subjects/counts", s.handler.Question.CountBySubject)
			public.GET("/subjects/:subject/questions", s.handler.Question.GetQuestionsBySubject)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(s.auth.Required())
		{
			protected.GET("/me", s.handler.Auth.GetMe)
			protected.GET("/users/:username", s.handler.User.GetUserProfile)

			protected.POST("/questions", s.handler.Question.CreateQuestion)
			protected.PUT("/questions/:id", s.handler.Question.UpdateQuestion)
			protected.DELETE("/questions/:id", s.handler.Question.DeleteQuestion)
			protected.POST("/questions/:id/vote", s.handler.Post.VoteQuestion)
			protected.POST("/questions/:id/comments", s.handler.Comment.CommentOnQuestion)
			protected.POST("/questions/:id/answers", s.handler.Answer.CreateAnswer)

			protected.PUT("/answers/:id", s.handler.Answer.UpdateAnswer)
			protected.DELETE("/answers/:id", s.handler.Answer.DeleteAnswer)
			protected.POST("/answers/:id/vote", s.handler.Post.VoteAnswer)
			protected.POST("/answers/:id/comments", s.handler.Comment.CommentOnAnswer)

			protected.DELETE("/comments/:commentId", s.handler.Comment.DeleteComment)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
