package progress

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/event"
	"github.com/nao1215/learnhub/pkg/httpserver"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/rs/zerolog"
)

// Server は進捗サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// log はサービスのロガー。
	log zerolog.Logger
	// store は進捗の永続化を担う。
	store *Store
	// verifier はトークンを検証する。
	verifier middleware.TokenVerifier
	// events はドメインイベントの発行先。
	events messaging.Publisher
	now    func() time.Time
}

// Options はServerの生成パラメータ。
type Options struct {
	Port     string
	Verifier middleware.TokenVerifier
	Events   messaging.Publisher
	Log      zerolog.Logger
}

// NewServer は新しい進捗サーバーを生成する。
func NewServer(db *sql.DB, opts Options) *Server {
	events := opts.Events
	if events == nil {
		events = messaging.NewLogPublisher(opts.Log)
	}
	s := &Server{
		router:   httpserver.NewRouter("progress", "progress-service", opts.Log),
		port:     opts.Port,
		log:      opts.Log,
		store:    NewStore(db),
		verifier: opts.Verifier,
		events:   events,
		now:      time.Now,
	}
	s.setupRoutes()
	return s
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	return httpserver.Run(ctx, s.port, s.router, s.log)
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	progress := s.router.Group("/progress", middleware.JWTAuth(s.verifier))
	{
		progress.GET("", s.handleList())
		progress.GET("/course/:course_id", s.handleCourse())
		progress.POST("/lesson/:lesson_id/start", s.handleStart())
		progress.POST("/lesson/:lesson_id/complete", s.handleComplete())
	}
}

// handleList は主体の進捗一覧を返すハンドラを返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := s.store.List(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

// handleCourse はコース単位の進捗集計を返すハンドラを返す。
func (s *Server) handleCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		cp, err := s.store.Course(c.Request.Context(), middleware.GetUserID(c), c.Param("course_id"))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, cp)
	}
}

// handleStart はレッスンを開始済みにするハンドラを返す。
func (s *Server) handleStart() gin.HandlerFunc {
	return s.transition(StatusInProgress, event.TypeLessonStarted, "Lesson started", s.store.Start)
}

// handleComplete はレッスンを完了済みにするハンドラを返す。
func (s *Server) handleComplete() gin.HandlerFunc {
	return s.transition(StatusCompleted, event.TypeLessonCompleted, "Lesson completed", s.store.Complete)
}

type transitionFunc func(ctx context.Context, id, userID, lessonID string, at time.Time) error

// transition は進捗の状態遷移を処理し、成功時にイベントを発行する。
func (s *Server) transition(status string, evType event.Type, message string, apply transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := middleware.GetUserID(c)
		lessonID := c.Param("lesson_id")

		err := apply(ctx, uuid.New().String(), userID, lessonID, s.now().UTC())
		if errors.Is(err, ErrLessonNotFound) {
			apperr.Respond(c, apperr.NotFound("Lesson not found"))
			return
		}
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}

		messaging.Emit(ctx, s.events, lessonID, event.AggregateTypeLesson, evType, event.LessonProgressData{
			UserID: userID,
			Status: status,
		})
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}
