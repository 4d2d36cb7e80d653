package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// バックエンドサービス名。
const (
	serviceAuth     = "auth"
	serviceCourse   = "course"
	serviceQuiz     = "quiz"
	serviceProgress = "progress"
	serviceReport   = "report"
)

// route は公開パスからバックエンドのパスへの対応。
type route struct {
	// method はHTTPメソッド。
	method string
	// public はgatewayで受け付けるパスパターン。
	public string
	// service は転送先のサービス名。
	service string
	// backend はバックエンドのパステンプレート。":name" の部分をパスパラメータで置き換える。
	backend string
}

// routes はgatewayの全ルート。
var routes = []route{
	{http.MethodPost, "/api/auth/register", serviceAuth, "/auth/register"},
	{http.MethodPost, "/api/auth/login", serviceAuth, "/auth/login"},
	{http.MethodPost, "/api/auth/verify", serviceAuth, "/auth/verify"},
	{http.MethodGet, "/api/auth/me", serviceAuth, "/auth/me"},

	{http.MethodGet, "/api/courses", serviceCourse, "/courses"},
	{http.MethodPost, "/api/courses", serviceCourse, "/courses"},
	{http.MethodGet, "/api/courses/:id", serviceCourse, "/courses/:id"},
	{http.MethodGet, "/api/courses/:id/modules", serviceCourse, "/courses/:id/modules"},
	{http.MethodPost, "/api/modules", serviceCourse, "/modules"},
	{http.MethodGet, "/api/modules/:id/lessons", serviceCourse, "/modules/:id/lessons"},

	{http.MethodGet, "/api/quizzes/lesson/:lesson_id", serviceQuiz, "/quizzes/lesson/:lesson_id"},
	{http.MethodPost, "/api/quizzes/:quiz_id/attempts", serviceQuiz, "/quizzes/:quiz_id/attempts"},
	{http.MethodGet, "/api/quizzes/:quiz_id/attempts/user", serviceQuiz, "/quizzes/:quiz_id/attempts/user"},

	{http.MethodGet, "/api/progress", serviceProgress, "/progress"},
	{http.MethodGet, "/api/progress/course/:course_id", serviceProgress, "/progress/course/:course_id"},
	{http.MethodPost, "/api/progress/lesson/:lesson_id/start", serviceProgress, "/progress/lesson/:lesson_id/start"},
	{http.MethodPost, "/api/progress/lesson/:lesson_id/complete", serviceProgress, "/progress/lesson/:lesson_id/complete"},

	{http.MethodGet, "/api/reports/week", serviceReport, "/reports/week"},
	{http.MethodGet, "/api/reports/history", serviceReport, "/reports/history"},
	{http.MethodPost, "/api/reports/generate", serviceReport, "/reports/generate"},
}

// backendPath はテンプレートの ":name" セグメントをパスパラメータで置き換える。
// パラメータ値はパスセグメントとしてエスケープする。
func backendPath(template string, params gin.Params) string {
	segments := strings.Split(template, "/")
	for i, seg := range segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok {
			continue
		}
		segments[i] = url.PathEscape(params.ByName(name))
	}
	return strings.Join(segments, "/")
}
