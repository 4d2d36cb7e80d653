package report

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/event"
	"github.com/nao1215/learnhub/pkg/httpserver"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/nao1215/learnhub/pkg/token"
	"github.com/rs/zerolog"
)

// Server はレポートサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// log はサービスのロガー。
	log zerolog.Logger
	// store はレポートの集計と保存を行う。
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

// NewServer は新しいレポートサーバーを生成する。
func NewServer(db *sql.DB, opts Options) *Server {
	events := opts.Events
	if events == nil {
		events = messaging.NewLogPublisher(opts.Log)
	}
	s := &Server{
		router:   httpserver.NewRouter("report", "report-service", opts.Log),
		port:     opts.Port,
		log:      opts.Log,
		store:    NewStore(db, uuid.NewString),
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
	reports := s.router.Group("/reports", middleware.JWTAuth(s.verifier))
	{
		reports.GET("/week", s.handleWeek())
		reports.GET("/history", s.handleHistory())
		reports.POST("/generate", middleware.RequireRole(token.RoleAdmin), s.handleGenerate())
	}
}

// handleWeek は直近7日間の集計を返すハンドラを返す。
func (s *Server) handleWeek() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		sum, err := s.store.Summarize(c.Request.Context(), userID, s.now().UTC().Add(-Period))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":            userID,
			"period":             "last 7 days",
			"lessons_completed":  sum.LessonsCompleted,
			"quizzes_taken":      sum.QuizzesTaken,
			"average_quiz_score": sum.AverageQuizScore,
		})
	}
}

// handleGenerate はアクティブな全ユーザーのレポートを生成するハンドラを返す。
func (s *Server) handleGenerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		at := s.now().UTC()
		n, err := s.store.Generate(ctx, at)
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}

		date := at.Format(dateLayout)
		messaging.Emit(ctx, s.events, date, event.AggregateTypeReport, event.TypeReportsGenerated, event.ReportsGeneratedData{
			ReportDate: date,
			Users:      n,
		})
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Generated reports for %d users", n)})
	}
}

// handleHistory は主体のレポート履歴を返すハンドラを返す。
func (s *Server) handleHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		reports, err := s.store.History(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, reports)
	}
}
