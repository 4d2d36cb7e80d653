package quiz

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/cache"
	"github.com/nao1215/learnhub/pkg/event"
	"github.com/nao1215/learnhub/pkg/httpserver"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL はクイズ定義のキャッシュ保持期間の既定値。
const DefaultCacheTTL = 5 * time.Minute

// Server はクイズサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// log はサービスのロガー。
	log zerolog.Logger
	// store はクイズ定義と履歴を読み取る。
	store *Store
	// engine は回答を採点する。
	engine *Engine
	// verifier はトークンを検証する。
	verifier middleware.TokenVerifier
	// events はドメインイベントの発行先。
	events messaging.Publisher
	// cache はレッスンごとのクイズ定義を保持する。
	cache    cache.Cache
	cacheTTL time.Duration
}

// Options はServerの生成パラメータ。
type Options struct {
	Port     string
	Verifier middleware.TokenVerifier
	Events   messaging.Publisher
	// Cache がnilの場合はキャッシュしない。
	Cache    cache.Cache
	CacheTTL time.Duration
	Log      zerolog.Logger
}

// NewServer は新しいクイズサーバーを生成する。
func NewServer(db *sql.DB, opts Options) *Server {
	events := opts.Events
	if events == nil {
		events = messaging.NewLogPublisher(opts.Log)
	}
	var c cache.Cache = cache.Nop{}
	if opts.Cache != nil {
		c = opts.Cache
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	s := &Server{
		router:   httpserver.NewRouter("quiz", "quiz-service", opts.Log),
		port:     opts.Port,
		log:      opts.Log,
		store:    NewStore(db),
		engine:   NewEngine(db),
		verifier: opts.Verifier,
		events:   events,
		cache:    c,
		cacheTTL: ttl,
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
	quizzes := s.router.Group("/quizzes")
	{
		quizzes.GET("/lesson/:lesson_id", s.handleGetByLesson())

		guarded := quizzes.Group("/:quiz_id/attempts", middleware.JWTAuth(s.verifier))
		guarded.POST("", s.handleSubmit())
		guarded.GET("/user", s.handleListAttempts())
	}
}

// answerID は数値でも文字列でも受け付けるID。
// 型が合わない値は空文字列として扱い、採点では不正解になる。
type answerID string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (id *answerID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = answerID(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		*id = answerID(n.String())
		return nil
	}
	*id = ""
	return nil
}

// answerRequest は1件の回答のJSON構造。
type answerRequest struct {
	QuestionID answerID `json:"question_id"`
	ChoiceID   answerID `json:"choice_id"`
}

// submitRequest は回答提出リクエストのJSON構造。
type submitRequest struct {
	Answers *[]answerRequest `json:"answers"`
}

// cacheKey はレッスンのクイズ定義のキャッシュキーを返す。
func cacheKey(lessonID string) string {
	return "quiz:lesson:" + lessonID
}

// handleGetByLesson はレッスンのクイズを返すハンドラを返す。
func (s *Server) handleGetByLesson() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		lessonID := c.Param("lesson_id")
		key := cacheKey(lessonID)

		var q Quiz
		err := cache.GetJSON(ctx, s.cache, key, &q)
		if err == nil {
			c.JSON(http.StatusOK, q)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed")
		}

		q, err = s.store.FindByLesson(ctx, lessonID)
		if errors.Is(err, ErrQuizNotFound) {
			apperr.Respond(c, apperr.NotFound("Quiz not found"))
			return
		}
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}

		if err := cache.SetJSON(ctx, s.cache, key, q, s.cacheTTL); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		c.JSON(http.StatusOK, q)
	}
}

// handleSubmit は回答を採点するハンドラを返す。
func (s *Server) handleSubmit() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Answers == nil {
			apperr.Respond(c, apperr.InvalidInput("Missing answers"))
			return
		}

		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			apperr.Respond(c, apperr.Unauthenticated("No token provided"))
			return
		}

		answers := make([]Answer, 0, len(*req.Answers))
		for _, a := range *req.Answers {
			answers = append(answers, Answer{QuestionID: string(a.QuestionID), ChoiceID: string(a.ChoiceID)})
		}

		ctx := c.Request.Context()
		quizID := c.Param("quiz_id")
		res, err := s.engine.Submit(ctx, quizID, principal, answers)
		if errors.Is(err, ErrQuizNotFound) {
			apperr.Respond(c, apperr.NotFound("Quiz not found"))
			return
		}
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}

		messaging.Emit(ctx, s.events, quizID, event.AggregateTypeQuiz, event.TypeQuizAttemptSubmitted, event.QuizAttemptSubmittedData{
			AttemptID:      res.AttemptID,
			UserID:         principal.UserID,
			Score:          res.Score,
			CorrectAnswers: res.CorrectAnswers,
			TotalQuestions: res.TotalQuestions,
		})
		c.JSON(http.StatusCreated, res)
	}
}

// handleListAttempts は主体自身の受験履歴を返すハンドラを返す。
func (s *Server) handleListAttempts() gin.HandlerFunc {
	return func(c *gin.Context) {
		attempts, err := s.store.ListAttempts(c.Request.Context(), c.Param("quiz_id"), middleware.GetUserID(c))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, attempts)
	}
}
