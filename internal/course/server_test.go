package course

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/database/dbtest"
	"github.com/nao1215/learnhub/pkg/event"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/token"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-for-unit-tests"

type testEnv struct {
	s      *Server
	db     *sql.DB
	codec  *token.Codec
	events *messaging.Recorder
}

// setupTestServer はインメモリSQLiteでコースサーバーを構築する。
func setupTestServer(t *testing.T) testEnv {
	t.Helper()

	db := dbtest.New(t)
	codec := token.NewCodec(testSecret, 0)
	rec := messaging.NewRecorder(nil)
	s := NewServer(db, Options{Port: "0", Verifier: codec, Events: rec, Log: zerolog.Nop()})
	return testEnv{s: s, db: db, codec: codec, events: rec}
}

func (e testEnv) bearer(t *testing.T, userID string, role token.Role) string {
	t.Helper()

	tok, err := e.codec.Issue(token.Claims{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("Issue()でエラーが発生: %v", err)
	}
	return "Bearer " + tok
}

func (e testEnv) do(t *testing.T, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
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
	e.s.router.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()

	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v (body=%s)", err, w.Body.String())
	}
}

func TestHandleCreateCourse(t *testing.T) {
	t.Parallel()

	t.Run("studentロールでは403が返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		w := env.do(t, http.MethodPost, "/courses", map[string]string{"title": "Go入門"}, env.bearer(t, "stu-1", token.RoleStudent))

		if w.Code != http.StatusForbidden {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
		var body map[string]string
		decodeInto(t, w, &body)
		if body["error"] != "Unauthorized" {
			t.Errorf("error = %q", body["error"])
		}
		if len(env.events.Events()) != 0 {
			t.Error("拒否されたリクエストでイベントが発行された")
		}
	})

	t.Run("instructorロールで201と新しいコースIDが返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		w := env.do(t, http.MethodPost, "/courses", map[string]string{"title": "Go入門", "description": "基礎"}, env.bearer(t, "ins-1", token.RoleInstructor))

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
		}
		var created map[string]string
		decodeInto(t, w, &created)
		if created["message"] != "Course created" || created["course_id"] == "" {
			t.Fatalf("レスポンス = %v", created)
		}

		w = env.do(t, http.MethodGet, "/courses/"+created["course_id"], nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("取得のステータスコード = %d", w.Code)
		}
		var course Course
		decodeInto(t, w, &course)
		if course.InstructorID != "ins-1" {
			t.Errorf("instructor_id = %q, want ins-1", course.InstructorID)
		}
		if course.Level != "beginner" {
			t.Errorf("level = %q, want beginner", course.Level)
		}

		if got := env.events.Types(); len(got) != 1 || got[0] != event.TypeCourseCreated {
			t.Errorf("発行イベント = %v", got)
		}
	})

	t.Run("トークンが無い場合は401が返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		w := env.do(t, http.MethodPost, "/courses", map[string]string{"title": "x"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("タイトルが無い場合は400が返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		w := env.do(t, http.MethodPost, "/courses", map[string]string{"description": "no title"}, env.bearer(t, "adm", token.RoleAdmin))
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("未知のレベルは400が返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		w := env.do(t, http.MethodPost, "/courses", map[string]string{"title": "x", "level": "expert"}, env.bearer(t, "adm", token.RoleAdmin))
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleGetCourse(t *testing.T) {
	t.Parallel()

	env := setupTestServer(t)
	w := env.do(t, http.MethodGet, "/courses/missing", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
	}
	var body map[string]string
	decodeInto(t, w, &body)
	if body["error"] != "Course not found" {
		t.Errorf("error = %q", body["error"])
	}

	w = env.do(t, http.MethodGet, "/courses", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("空の一覧 = %d %s, want 200 []", w.Code, w.Body.String())
	}
}

func TestModules(t *testing.T) {
	t.Parallel()

	t.Run("モジュールを作成するとorder_index順に一覧できること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		cat := dbtest.SeedCatalog(t, env.db, "c1", 0)
		auth := env.bearer(t, "ins", token.RoleInstructor)

		w := env.do(t, http.MethodPost, "/modules", map[string]any{"course_id": cat.CourseID, "title": "第3章", "order_index": 3}, auth)
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d, want %d (body=%s)", w.Code, http.StatusCreated, w.Body.String())
		}
		var created map[string]string
		decodeInto(t, w, &created)
		if created["message"] != "Module created" || created["module_id"] == "" {
			t.Errorf("レスポンス = %v", created)
		}

		w = env.do(t, http.MethodGet, "/courses/"+cat.CourseID+"/modules", nil, "")
		var modules []Module
		decodeInto(t, w, &modules)
		if len(modules) != 2 {
			t.Fatalf("モジュール数 = %d, want 2", len(modules))
		}
		if modules[0].OrderIndex != 1 || modules[1].Title != "第3章" {
			t.Errorf("並び順が不正: %+v", modules)
		}

		if got := env.events.Types(); len(got) != 1 || got[0] != event.TypeModuleCreated {
			t.Errorf("発行イベント = %v", got)
		}
	})

	t.Run("order_index省略時は1になること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		cat := dbtest.SeedCatalog(t, env.db, "c2", 0)
		w := env.do(t, http.MethodPost, "/modules", map[string]any{"course_id": cat.CourseID, "title": "追加"}, env.bearer(t, "adm", token.RoleAdmin))
		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコード = %d", w.Code)
		}

		modules, err := env.s.store.ListModules(t.Context(), cat.CourseID)
		if err != nil {
			t.Fatalf("ListModules()でエラーが発生: %v", err)
		}
		for _, m := range modules {
			if m.OrderIndex != 1 {
				t.Errorf("order_index = %d, want 1", m.OrderIndex)
			}
		}
	})

	t.Run("存在しないコースへのモジュール作成は404が返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		w := env.do(t, http.MethodPost, "/modules", map[string]any{"course_id": "nope", "title": "x"}, env.bearer(t, "adm", token.RoleAdmin))
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("studentロールでのモジュール作成は403が返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		cat := dbtest.SeedCatalog(t, env.db, "c3", 0)
		w := env.do(t, http.MethodPost, "/modules", map[string]any{"course_id": cat.CourseID, "title": "x"}, env.bearer(t, "stu", token.RoleStudent))
		if w.Code != http.StatusForbidden {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusForbidden)
		}
	})

	t.Run("レッスン一覧がorder_index順に返ること", func(t *testing.T) {
		t.Parallel()

		env := setupTestServer(t)
		cat := dbtest.SeedCatalog(t, env.db, "c4", 3)
		w := env.do(t, http.MethodGet, "/modules/"+cat.ModuleID+"/lessons", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d", w.Code)
		}
		var lessons []Lesson
		decodeInto(t, w, &lessons)
		if len(lessons) != 3 {
			t.Fatalf("レッスン数 = %d, want 3", len(lessons))
		}
		for i, l := range lessons {
			if l.ID != cat.LessonIDs[i] || l.OrderIndex != i+1 {
				t.Errorf("lessons[%d] = %+v", i, l)
			}
		}
	})
}
