package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/httpclient"
	"github.com/nao1215/learnhub/pkg/httpserver"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// upstreamRequests はバックエンドへの転送結果を数える。
var upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "learnhub_gateway_upstream_requests_total",
	Help: "Requests forwarded by the gateway, by backend service and outcome.",
}, []string{"service", "outcome"})

// errMalformedResponse はバックエンドの応答ボディがJSONとして解釈できないことを表す。
var errMalformedResponse = errors.New("response body is not valid JSON")

// 転送結果のラベル値。
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// log はサービスのロガー。
	log zerolog.Logger
	// clients はサービス名ごとのバックエンドクライアント。
	clients map[string]*httpclient.Client
}

// Options はServerの生成パラメータ。
type Options struct {
	Port string
	// Services はバックエンドのベースURL。
	Services config.ServiceURLs
	// Timeout はバックエンド呼び出しのタイムアウト。0以下なら既定値。
	Timeout        time.Duration
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(opts Options) *Server {
	s := &Server{
		router: httpserver.NewRouter("gateway", "gateway", opts.Log, middleware.CORS(opts.AllowedOrigins)),
		port:   opts.Port,
		log:    opts.Log,
		clients: map[string]*httpclient.Client{
			serviceAuth:     httpclient.New(opts.Services.Auth, opts.Timeout),
			serviceCourse:   httpclient.New(opts.Services.Course, opts.Timeout),
			serviceQuiz:     httpclient.New(opts.Services.Quiz, opts.Timeout),
			serviceProgress: httpclient.New(opts.Services.Progress, opts.Timeout),
			serviceReport:   httpclient.New(opts.Services.Report, opts.Timeout),
		},
	}
	s.setupRoutes()
	return s
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動する。
func (s *Server) Run(ctx context.Context) error {
	return httpserver.Run(ctx, s.port, s.router, s.log)
}

// setupRoutes はルート表からプロキシルートを登録する。
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex())
	for _, r := range routes {
		s.router.Handle(r.method, r.public, s.handleProxy(r))
	}
}

// handleIndex はgatewayの概要と各サービスのヘルスチェックURLを返すハンドラを返す。
func (s *Server) handleIndex() gin.HandlerFunc {
	services := make(gin.H, len(s.clients))
	for name, client := range s.clients {
		services[name] = client.BaseURL() + "/health"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Learning Tracker API Gateway",
			"version":  "1.0",
			"services": services,
		})
	}
}

// handleProxy はルートに従ってリクエストをバックエンドへ転送するハンドラを返す。
// JSONボディはステータスとともにそのまま返し、通信失敗やJSONでないボディは502にする。
func (s *Server) handleProxy(r route) gin.HandlerFunc {
	client := s.clients[r.service]
	return func(c *gin.Context) {
		path := backendPath(r.backend, c.Params)
		resp, err := client.Forward(c.Request.Context(), r.method, path, c.Request.URL.RawQuery, c.Request.Header, c.Request.Body)
		if err != nil {
			upstreamRequests.WithLabelValues(r.service, outcomeError).Inc()
			apperr.Respond(c, apperr.Wrap(apperr.KindUpstream, fmt.Sprintf("%s service unavailable: %v", r.service, err), err))
			return
		}
		// バックエンドは常にJSONを返す。それ以外はステータスに関わらず上流の障害とみなす
		if !json.Valid(resp.Body) {
			upstreamRequests.WithLabelValues(r.service, outcomeError).Inc()
			err := fmt.Errorf("%w (status %d, content type %q)", errMalformedResponse, resp.StatusCode, resp.ContentType)
			apperr.Respond(c, apperr.Wrap(apperr.KindUpstream, fmt.Sprintf("%s service returned malformed response: %v", r.service, err), err))
			return
		}
		upstreamRequests.WithLabelValues(r.service, outcomeOK).Inc()

		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		c.Data(resp.StatusCode, contentType, resp.Body)
	}
}
