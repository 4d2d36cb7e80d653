package apperr

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Respond はエラーをHTTPステータスと {"error": message} に変換してリクエストを中断する。
// Internal/Upstreamの場合はリクエストコンテキストのロガーへ原因を出力する。
func Respond(c *gin.Context, err error) {
	kind := KindOf(err)
	if kind == KindInternal || kind == KindUpstream {
		zerolog.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(HTTPStatus(kind), gin.H{"error": MessageOf(err)})
}
