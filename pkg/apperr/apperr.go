// Package apperr は全サービス共通のエラー分類を提供する。
//
// 各レイヤーは例外ではなく Kind 付きのエラー値を返し、HTTP境界で
// ステータスコードと {"error": message} 形式のJSONに変換する。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの種類を表す閉じた列挙。
type Kind int

const (
	// KindInternal は分類できないストア/ロジックの失敗。
	KindInternal Kind = iota
	// KindInvalidInput はリクエストフィールドの欠落・不正。
	KindInvalidInput
	// KindUnauthenticated はトークンが提示されていないことを表す。
	KindUnauthenticated
	// KindUnauthorized はトークンが不正・期限切れ、または認証情報が誤っていることを表す。
	KindUnauthorized
	// KindForbidden はロールが操作を許可されていないことを表す。
	KindForbidden
	// KindNotFound はエンティティが存在しないことを表す。
	KindNotFound
	// KindConflict は一意キーの重複を表す。
	KindConflict
	// KindUpstream はGatewayからバックエンドへの通信失敗を表す。
	KindUpstream
)

// String はKindの名前を返す。
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindUpstream:
		return "Upstream"
	default:
		return "Internal"
	}
}

// HTTPStatus はKindに対応するHTTPステータスコードを返す。
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error はKindとクライアント向けメッセージを持つエラー。
type Error struct {
	// Kind はエラーの種類。
	Kind Kind
	// Message はクライアントに返す人間向けメッセージ。
	Message string
	// Err は原因となったエラー。ログ出力にのみ使用する。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// New はKindとメッセージからエラーを生成する。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap は原因エラーを包んだエラーを生成する。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InvalidInput はKindInvalidInputのエラーを生成する。
func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

// Unauthenticated はKindUnauthenticatedのエラーを生成する。
func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

// Unauthorized はKindUnauthorizedのエラーを生成する。
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Forbidden はKindForbiddenのエラーを生成する。
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// NotFound はKindNotFoundのエラーを生成する。
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Conflict はKindConflictのエラーを生成する。
func Conflict(message string) *Error { return New(KindConflict, message) }

// Internal は原因エラーを包んだKindInternalのエラーを生成する。
func Internal(err error) *Error { return Wrap(KindInternal, "Internal server error", err) }

// KindOf はエラーチェーンからKindを取り出す。*Errorを含まない場合はKindInternal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf はクライアントに返すメッセージを取り出す。
// *Errorを含まないエラーの詳細はクライアントに漏らさない。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}
