package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestHTTPStatus はKindとHTTPステータスの対応を検証する。
func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		KindInvalidInput:    http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindUnauthorized:    http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindUpstream:        http.StatusBadGateway,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

// TestKindOf はラップされたエラーからKindを取り出せることを検証する。
func TestKindOf(t *testing.T) {
	t.Parallel()

	t.Run("fmt.Errorfで包まれていてもKindを取り出せること", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("外側: %w", Conflict("User already exists"))
		if got := KindOf(err); got != KindConflict {
			t.Errorf("KindOf() = %s, want %s", got, KindConflict)
		}
		if got := MessageOf(err); got != "User already exists" {
			t.Errorf("MessageOf() = %q, want %q", got, "User already exists")
		}
	})

	t.Run("分類されていないエラーはInternalになり詳細を隠すこと", func(t *testing.T) {
		t.Parallel()

		err := errors.New("pq: connection refused")
		if got := KindOf(err); got != KindInternal {
			t.Errorf("KindOf() = %s, want %s", got, KindInternal)
		}
		if got := MessageOf(err); got != "Internal server error" {
			t.Errorf("MessageOf() = %q", got)
		}
	})

	t.Run("Internalは原因をUnwrapできること", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("disk full")
		err := Internal(cause)
		if !errors.Is(err, cause) {
			t.Error("errors.Isで原因を辿れない")
		}
	})
}

// TestRespond はRespondがステータスとJSONボディを書き込むことを検証する。
func TestRespond(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.GET("/forbidden", func(c *gin.Context) {
		Respond(c, Forbidden("Insufficient role"))
	})
	router.GET("/internal", func(c *gin.Context) {
		Respond(c, errors.New("sql: database is closed"))
	})

	t.Run("Forbiddenは403を返すこと", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forbidden", nil))

		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if body["error"] != "Insufficient role" {
			t.Errorf("error = %q, want %q", body["error"], "Insufficient role")
		}
	})

	t.Run("分類されていないエラーは500で汎用メッセージを返すこと", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスのパースに失敗: %v", err)
		}
		if body["error"] != "Internal server error" {
			t.Errorf("error = %q", body["error"])
		}
	})
}
