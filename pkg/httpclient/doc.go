// Package httpclient はgatewayからバックエンドサービスへの転送に使うHTTPクライアントを提供する。
//
// リクエストのメソッド・ボディ・Authorizationヘッダーをそのまま送り、
// バックエンドのステータスコードとボディを解釈せずに呼び出し元へ返す。
package httpclient
