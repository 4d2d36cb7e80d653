package course

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
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

// defaultLevel はレベル未指定時のコースレベル。
const defaultLevel = "beginner"

var validLevels = map[string]bool{
	"beginner":     true,
	"intermediate": true,
	"advanced":     true,
}

// Server はコースサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// log はサービスのロガー。
	log zerolog.Logger
	// store はカタログの永続化を担う。
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

// NewServer は新しいコースサーバーを生成する。
func NewServer(db *sql.DB, opts Options) *Server {
	events := opts.Events
	if events == nil {
		events = messaging.NewLogPublisher(opts.Log)
	}
	s := &Server{
		router:   httpserver.NewRouter("course", "course-service", opts.Log),
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
	staffOnly := []gin.HandlerFunc{
		middleware.JWTAuth(s.verifier),
		middleware.RequireRole(token.RoleAdmin, token.RoleInstructor),
	}

	courses := s.router.Group("/courses")
	{
		courses.GET("", s.handleListCourses())
		courses.GET("/:id", s.handleGetCourse())
		courses.POST("", append(staffOnly, s.handleCreateCourse())...)
		courses.GET("/:id/modules", s.handleListModules())
	}

	modules := s.router.Group("/modules")
	{
		modules.POST("", append(staffOnly, s.handleCreateModule())...)
		modules.GET("/:id/lessons", s.handleListLessons())
	}
}

// createCourseRequest はコース作成リクエストのJSON構造。
type createCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       string `json:"level"`
}

// createModuleRequest はモジュール作成リクエストのJSON構造。
type createModuleRequest struct {
	CourseID   string `json:"course_id"`
	Title      string `json:"title"`
	OrderIndex *int   `json:"order_index"`
}

// handleListCourses はコース一覧を返すハンドラを返す。
func (s *Server) handleListCourses() gin.HandlerFunc {
	return func(c *gin.Context) {
		courses, err := s.store.ListCourses(c.Request.Context())
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, courses)
	}
}

// handleGetCourse はコース詳細を返すハンドラを返す。
func (s *Server) handleGetCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		course, err := s.store.GetCourse(c.Request.Context(), c.Param("id"))
		if err != nil {
			apperr.Respond(c, storeError(err))
			return
		}
		c.JSON(http.StatusOK, course)
	}
}

// handleCreateCourse はコースを作成するハンドラを返す。
// 作成者のユーザーIDがinstructor_idになる。
func (s *Server) handleCreateCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCourseRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
			apperr.Respond(c, apperr.InvalidInput("Missing required fields"))
			return
		}

		level := req.Level
		if level == "" {
			level = defaultLevel
		}
		if !validLevels[level] {
			apperr.Respond(c, apperr.InvalidInput("Invalid level"))
			return
		}

		course := Course{
			ID:           uuid.New().String(),
			Title:        strings.TrimSpace(req.Title),
			Description:  req.Description,
			Level:        level,
			InstructorID: middleware.GetUserID(c),
			CreatedAt:    s.now().UTC(),
		}
		ctx := c.Request.Context()
		if err := s.store.CreateCourse(ctx, course); err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}

		messaging.Emit(ctx, s.events, course.ID, event.AggregateTypeCourse, event.TypeCourseCreated, event.CourseCreatedData{
			Title:        course.Title,
			Level:        course.Level,
			InstructorID: course.InstructorID,
		})
		c.JSON(http.StatusCreated, gin.H{"message": "Course created", "course_id": course.ID})
	}
}

// handleListModules はコースのモジュール一覧を返すハンドラを返す。
func (s *Server) handleListModules() gin.HandlerFunc {
	return func(c *gin.Context) {
		modules, err := s.store.ListModules(c.Request.Context(), c.Param("id"))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, modules)
	}
}

// handleCreateModule はモジュールを作成するハンドラを返す。
func (s *Server) handleCreateModule() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createModuleRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.CourseID == "" || strings.TrimSpace(req.Title) == "" {
			apperr.Respond(c, apperr.InvalidInput("Missing required fields"))
			return
		}

		module := Module{
			ID:         uuid.New().String(),
			CourseID:   req.CourseID,
			Title:      strings.TrimSpace(req.Title),
			OrderIndex: 1,
		}
		if req.OrderIndex != nil {
			module.OrderIndex = *req.OrderIndex
		}

		ctx := c.Request.Context()
		if err := s.store.CreateModule(ctx, module, s.now().UTC()); err != nil {
			apperr.Respond(c, storeError(err))
			return
		}

		messaging.Emit(ctx, s.events, module.CourseID, event.AggregateTypeCourse, event.TypeModuleCreated, event.ModuleCreatedData{
			ModuleID:   module.ID,
			Title:      module.Title,
			OrderIndex: module.OrderIndex,
		})
		c.JSON(http.StatusCreated, gin.H{"message": "Module created", "module_id": module.ID})
	}
}

// handleListLessons はモジュールのレッスン一覧を返すハンドラを返す。
func (s *Server) handleListLessons() gin.HandlerFunc {
	return func(c *gin.Context) {
		lessons, err := s.store.ListLessons(c.Request.Context(), c.Param("id"))
		if err != nil {
			apperr.Respond(c, apperr.Internal(err))
			return
		}
		c.JSON(http.StatusOK, lessons)
	}
}

// storeError はStoreのエラーをapperrに変換する。
func storeError(err error) error {
	if errors.Is(err, ErrCourseNotFound) {
		return apperr.NotFound("Course not found")
	}
	return apperr.Internal(err)
}
