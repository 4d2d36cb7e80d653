// Package dbtest はテスト用のインメモリSQLiteデータベースを提供する。
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/nao1215/learnhub/pkg/database"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// New はマイグレーション適用済みのインメモリDBを返す。
// ":memory:" は接続ごとに別DBになるため接続数を1に制限する。
func New(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open(database.DriverSQLite, database.SQLiteDSN(":memory:"))
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(t.Context(), db, zerolog.Nop()); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}
	return db
}
