// Package httpserver は全サービス共通のGinルーター構築とHTTPサーバーの起動・停止を提供する。
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/middleware"
	"github.com/rs/zerolog"
)

// shutdownTimeout は停止要求から処理中リクエストの完了を待つ上限時間。
const shutdownTimeout = 10 * time.Second

// NewRouter は共通ミドルウェアと /health、/metrics を登録したルーターを返す。
// serviceはメトリクスのラベル、healthNameは /health の service フィールドに使う。
// extraは共通ミドルウェアの後、全ルートの前に適用される。
func NewRouter(service, healthName string, log zerolog.Logger, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics(service))
	router.Use(extra...)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": healthName})
	})
	router.GET("/metrics", middleware.MetricsHandler())
	return router
}

// Run はctxがキャンセルされるまでHTTPサーバーを起動し、キャンセル後はグレースフルに停止する。
func Run(ctx context.Context, port string, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
