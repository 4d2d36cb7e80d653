package migration

import (
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countVersions(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("schema_migrationsの集計に失敗: %v", err)
	}
	return n
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("バージョン順に適用され再実行では何もしないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"sql/000002_add_col.up.sql": {Data: []byte("ALTER TABLE notes ADD COLUMN body TEXT;")},
			"sql/000001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY);")},
			"sql/000001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
			"sql/README.md":             {Data: []byte("ignored")},
		}

		if err := Run(t.Context(), db, fsys, "sql", zerolog.Nop()); err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if _, err := db.Exec("INSERT INTO notes (id, body) VALUES ($1, $2)", "n1", "text"); err != nil {
			t.Fatalf("マイグレーション後のINSERTに失敗: %v", err)
		}
		if got := countVersions(t, db); got != 2 {
			t.Errorf("適用済みバージョン数 = %d, want 2", got)
		}

		if err := Run(t.Context(), db, fsys, "sql", zerolog.Nop()); err != nil {
			t.Fatalf("2回目のRun()でエラーが発生: %v", err)
		}
		if got := countVersions(t, db); got != 2 {
			t.Errorf("再実行後の適用済みバージョン数 = %d, want 2", got)
		}
	})

	t.Run("失敗したマイグレーションは記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"sql/000001_ok.up.sql":     {Data: []byte("CREATE TABLE a (id TEXT);")},
			"sql/000002_broken.up.sql": {Data: []byte("CREATE TABLE (;")},
		}

		if err := Run(t.Context(), db, fsys, "sql", zerolog.Nop()); err == nil {
			t.Fatal("不正なSQLでエラーが返るべき")
		}
		if got := countVersions(t, db); got != 1 {
			t.Errorf("適用済みバージョン数 = %d, want 1", got)
		}
	})

	t.Run("同じバージョンが重複している場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		fsys := fstest.MapFS{
			"sql/000001_a.up.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"sql/000001_b.up.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
		}

		if err := Run(t.Context(), db, fsys, "sql", zerolog.Nop()); err == nil {
			t.Fatal("重複バージョンでエラーが返るべき")
		}
	})
}
