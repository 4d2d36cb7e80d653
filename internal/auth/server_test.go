package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/database/dbtest"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/token"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer はインメモリSQLiteで認証サーバーを構築する。
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	return NewServer(dbtest.New(t), Options{
		Port:       "0",
		Codec:      token.NewCodec(testSecret, 0),
		BcryptCost: bcrypt.MinCost,
		Events:     messaging.NewRecorder(nil),
		Log:        zerolog.Nop(),
	})
}

// doJSON はJSONボディ付きのリクエストを実行する。
func doJSON(t *testing.T, s *Server, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("リクエストボディのエンコードに失敗: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decode はレスポンスボディをmapにデコードする。
func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v (body=%s)", err, w.Body.String())
	}
	return body
}

func TestHandleRegisterAndLogin(t *testing.T) {
	t.Parallel()

	t.Run("登録してログインし、/auth/meで自分の情報を取得できること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)

		w := doJSON(t, s, http.MethodPost, "/auth/register", map[string]string{
			"name": "Alice", "email": "alice@example.com", "password": "pw-alice",
		}, "")
		if w.Code != http.StatusCreated {
			t.Fatalf("登録のステータスコード = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
		}
		reg := decode(t, w)
		if reg["message"] != "User created" {
			t.Errorf("message = %v", reg["message"])
		}
		userID, _ := reg["user_id"].(string)
		if userID == "" {
			t.Fatal("user_idが空")
		}

		w = doJSON(t, s, http.MethodPost, "/auth/login", map[string]string{
			"email": "alice@example.com", "password": "pw-alice",
		}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("ログインのステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		login := decode(t, w)
		if login["user_id"] != userID || login["role"] != "student" || login["name"] != "Alice" {
			t.Errorf("ログインレスポンス = %v", login)
		}
		tok, _ := login["token"].(string)

		w = doJSON(t, s, http.MethodGet, "/auth/me", nil, "Bearer "+tok)
		if w.Code != http.StatusOK {
			t.Fatalf("/auth/meのステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		me := decode(t, w)
		if me["email"] != "alice@example.com" || me["user_id"] != userID {
			t.Errorf("/auth/meレスポンス = %v", me)
		}
	})

	t.Run("同じメールアドレスで2回登録すると409が返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		body := map[string]string{"name": "Bob", "email": "bob@example.com", "password": "pw"}

		if w := doJSON(t, s, http.MethodPost, "/auth/register", body, ""); w.Code != http.StatusCreated {
			t.Fatalf("1回目のステータスコード = %d", w.Code)
		}
		w := doJSON(t, s, http.MethodPost, "/auth/register", body, "")
		if w.Code != http.StatusConflict {
			t.Errorf("2回目のステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}
		if got := decode(t, w)["error"]; got != "User already exists" {
			t.Errorf("error = %v", got)
		}
	})

	t.Run("必須項目が欠けた登録は400が返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		w := doJSON(t, s, http.MethodPost, "/auth/register", map[string]string{"email": "x@example.com"}, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if got := decode(t, w)["error"]; got != "Missing required fields" {
			t.Errorf("error = %v", got)
		}
	})

	t.Run("誤ったパスワードでは401と汎用メッセージが返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		doJSON(t, s, http.MethodPost, "/auth/register", map[string]string{
			"name": "Carol", "email": "carol@example.com", "password": "right",
		}, "")

		for _, body := range []map[string]string{
			{"email": "carol@example.com", "password": "wrong"},
			{"email": "nobody@example.com", "password": "right"},
		} {
			w := doJSON(t, s, http.MethodPost, "/auth/login", body, "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := decode(t, w)["error"]; got != "Invalid credentials" {
				t.Errorf("error = %v", got)
			}
		}
	})
}

func TestHandleVerify(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)

	t.Run("有効なトークンでvalid=trueが返ること", func(t *testing.T) {
		t.Parallel()

		tok, err := s.codec.Issue(token.Claims{UserID: "u-verify", Role: token.RoleInstructor})
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}
		w := doJSON(t, s, http.MethodPost, "/auth/verify", map[string]string{"token": tok}, "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		body := decode(t, w)
		if body["valid"] != true || body["user_id"] != "u-verify" || body["role"] != "instructor" {
			t.Errorf("レスポンス = %v", body)
		}
	})

	t.Run("トークンが無い場合は400が返ること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, s, http.MethodPost, "/auth/verify", map[string]string{}, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if got := decode(t, w)["error"]; got != "No token provided" {
			t.Errorf("error = %v", got)
		}
	})

	t.Run("期限切れトークンは401でToken expiredが返ること", func(t *testing.T) {
		t.Parallel()

		tok, err := s.codec.Issue(token.Claims{UserID: "u-old", Role: token.RoleStudent, ExpiresAt: time.Now().Add(-time.Minute).Truncate(time.Second)})
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}
		w := doJSON(t, s, http.MethodPost, "/auth/verify", map[string]string{"token": tok}, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := decode(t, w)["error"]; got != "Token expired" {
			t.Errorf("error = %v", got)
		}
	})
}

func TestHandleMe(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)

	t.Run("トークンが無い場合は401が返ること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, s, http.MethodGet, "/auth/me", nil, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("トークンは有効でもユーザーが存在しない場合は404が返ること", func(t *testing.T) {
		t.Parallel()

		tok, err := s.codec.Issue(token.Claims{UserID: "ghost", Role: token.RoleStudent})
		if err != nil {
			t.Fatalf("Issue()でエラーが発生: %v", err)
		}
		w := doJSON(t, s, http.MethodGet, "/auth/me", nil, "Bearer "+tok)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		if got := decode(t, w)["error"]; got != "User not found" {
			t.Errorf("error = %v", got)
		}
	})

	t.Run("/healthがauth-serviceを返すこと", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, s, http.MethodGet, "/health", nil, "")
		if got := decode(t, w)["service"]; got != "auth-service" {
			t.Errorf("service = %v", got)
		}
	})
}
