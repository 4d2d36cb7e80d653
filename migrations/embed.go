// Package migrations は全サービスで共有するリレーショナルスキーマを埋め込む。
// SQLはSQLiteとPostgreSQLの両方で実行できる構文のみを使用する。
package migrations

import "embed"

// FS は *.up.sql ファイルを含む。
//
//go:embed *.up.sql
var FS embed.FS

// Dir はFS内のマイグレーションファイルのディレクトリ。
const Dir = "."
