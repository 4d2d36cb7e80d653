// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// セッショントークンの検証とロールによる認可（認可ガード）、リクエストログ、
// パニックリカバリ、CORS設定、Prometheusメトリクスなど、
// 全サービスで共通して使用するミドルウェアを含む。
package middleware
