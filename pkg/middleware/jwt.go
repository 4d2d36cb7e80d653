package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/learnhub/pkg/apperr"
	"github.com/nao1215/learnhub/pkg/token"
)

// コンテキストキー。
const (
	contextKeyUserID = "user_id"
	contextKeyEmail  = "email"
	contextKeyRole   = "role"
)

// TokenVerifier はトークン文字列を検証してクレームを返す。
// *token.Codec が実装する。
type TokenVerifier interface {
	Verify(tokenString string) (token.Claims, error)
}

// ExtractToken はAuthorizationヘッダーの値からトークン文字列を取り出す。
// "Bearer " プレフィックスがあれば取り除き、無ければ値全体をトークンとして扱う。
func ExtractToken(header string) string {
	tok, _ := strings.CutPrefix(header, "Bearer ")
	return strings.TrimSpace(tok)
}

// Authenticate はAuthorizationヘッダーの値を検証して認証済み主体を返す。
// トークンが無ければUnauthenticated、期限切れ・不正ならUnauthorizedを返す。
// 永続状態には触れない。
func Authenticate(verifier TokenVerifier, header string) (token.Claims, error) {
	tok := ExtractToken(header)
	if tok == "" {
		return token.Claims{}, apperr.Unauthenticated("No token provided")
	}

	claims, err := verifier.Verify(tok)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, token.ErrExpired):
		return token.Claims{}, apperr.Wrap(apperr.KindUnauthorized, "Token expired", err)
	default:
		return token.Claims{}, apperr.Wrap(apperr.KindUnauthorized, "Invalid token", err)
	}
}

// JWTAuth はトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "user_id"、"email"、"role" を設定する。
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := Authenticate(verifier, c.GetHeader("Authorization"))
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyEmail, claims.Email)
		c.Set(contextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole は主体のロールがallowedに含まれない場合に403を返すミドルウェア。
// JWTAuthの後に適用する。
func RequireRole(allowed ...token.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			apperr.Respond(c, apperr.Unauthenticated("No token provided"))
			return
		}
		if !principal.HasRole(allowed...) {
			apperr.Respond(c, apperr.Forbidden("Unauthorized"))
			return
		}
		c.Next()
	}
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPrincipal はGinコンテキストから認証済み主体を取得する。
func GetPrincipal(c *gin.Context) (token.Principal, bool) {
	userID := GetUserID(c)
	if userID == "" {
		return token.Principal{}, false
	}
	v, _ := c.Get(contextKeyRole)
	role, ok := v.(token.Role)
	if !ok {
		return token.Principal{}, false
	}
	return token.Principal{UserID: userID, Role: role}, true
}
