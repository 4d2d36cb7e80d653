package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestRequestLogger はRequestLoggerミドルウェアを検証する。
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("リクエストごとにルートとステータスが記録されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestLogger(zerolog.New(&buf)))
		router.GET("/courses/:id", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		})

		req := httptest.NewRequest(http.MethodGet, "/courses/abc", nil)
		router.ServeHTTP(httptest.NewRecorder(), req)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("ログのパースに失敗: %v (%s)", err, buf.String())
		}
		if entry["route"] != "/courses/:id" {
			t.Errorf("route = %v, want %q", entry["route"], "/courses/:id")
		}
		if entry["path"] != "/courses/abc" {
			t.Errorf("path = %v, want %q", entry["path"], "/courses/abc")
		}
		if entry["status"] != float64(http.StatusNotFound) {
			t.Errorf("status = %v, want %d", entry["status"], http.StatusNotFound)
		}
		if entry["level"] != "warn" {
			t.Errorf("level = %v, want warn", entry["level"])
		}
	})

	t.Run("ハンドラーからcontext経由でロガーを取得できること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestLogger(zerolog.New(&buf)))
		router.GET("/ping", func(c *gin.Context) {
			zerolog.Ctx(c.Request.Context()).Info().Msg("from handler")
			c.Status(http.StatusOK)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if !bytes.Contains(buf.Bytes(), []byte("from handler")) {
			t.Errorf("ハンドラーのログが出力されていない: %s", buf.String())
		}
	})
}
