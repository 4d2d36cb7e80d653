package auth

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/httpserver"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/nao1215/learnhub/pkg/token"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Server は認証サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// log はサービスのロガー。
	log zerolog.Logger
	// codec はトークンの発行・検証に使う。
	codec *token.Codec
	// issuer は登録・ログインを処理する。
	issuer *Issuer
}

// Options はServerの生成パラメータ。
type Options struct {
	Port  string
	Codec *token.Codec
	// BcryptCost は0の場合bcrypt.DefaultCost。
	BcryptCost int
	Events     messaging.Publisher
	Log        zerolog.Logger
}

// NewServer は新しい認証サーバーを生成する。
func NewServer(db *sql.DB, opts Options) *Server {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	events := opts.Events
	if events == nil {
		events = messaging.NewLogPublisher(opts.Log)
	}

	s := &Server{
		router: httpserver.NewRouter("auth", "auth-service", opts.Log),
		port:   opts.Port,
		log:    opts.Log,
		codec:  opts.Codec,
		issuer: NewIssuer(NewStore(db), opts.Codec, NewPasswordHasher(cost), events),
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
	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.handleRegister())
		auth.POST("/login", s.handleLogin())
		auth.POST("/verify", s.handleVerify())
		auth.GET("/me", middleware.JWTAuth(s.codec), s.handleMe())
	}
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// verifyRequest はトークン検証リクエストのJSON構造。
type verifyRequest struct {
	Token string `json:"token"`
}

// handleRegister はユーザー登録を処理するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.InvalidInput("Missing required fields"))
			return
		}

		userID, err := s.issuer.Register(c.Request.Context(), RegisterInput(req))
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "User created", "user_id": userID})
	}
}

// handleLogin はログインを処理するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apperr.Respond(c, apperr.InvalidInput("Missing email or password"))
			return
		}

		res, err := s.issuer.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":   res.Token,
			"user_id": res.UserID,
			"name":    res.Name,
			"email":   res.Email,
			"role":    res.Role,
		})
	}
}

// handleVerify はボディで渡されたトークンを検証するハンドラを返す。
func (s *Server) handleVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyRequest
		// ボディが無い・不正な場合はトークン無しとして扱う
		_ = c.ShouldBindJSON(&req)

		res, err := s.issuer.Introspect(req.Token)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// handleMe は認証済みユーザーのプロフィールを返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.GetPrincipal(c)
		if !ok {
			apperr.Respond(c, apperr.Unauthenticated("No token provided"))
			return
		}

		profile, err := s.issuer.WhoAmI(c.Request.Context(), principal)
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}
