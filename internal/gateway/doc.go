// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 公開パス（/api/...）を静的なルート表でバックエンドサービスのパスへ対応付け、
// メソッド・ボディ・Authorizationヘッダーをそのまま転送する。
// バックエンドのステータスコードとボディは解釈せずにクライアントへ返す。
// トークンの検証は各バックエンドが行い、gatewayは行わない。
// バックエンドへの通信に失敗した場合は502を返す。リトライはしない。
package gateway
