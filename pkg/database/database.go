// Package database はSQLiteまたはPostgreSQLへの接続を開き、スキーマを適用する。
//
// 全サービスのSQLは$n形式のプレースホルダーを使い、両ドライバーでそのまま実行できる。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/nao1215/learnhub/migrations"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/migration"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ドライバー名。
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// defaultSQLitePath はDB_DSN未指定時のSQLiteファイル。
const defaultSQLitePath = "learnhub.db"

// sqliteParams は全SQLite接続に付与するパラメータ。
// 時刻はSQLiteの日時形式で書き込み、文字列比較で時系列順になるようにする。
const sqliteParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// Open は設定に従ってデータベースに接続し、マイグレーションを適用する。
func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*sql.DB, error) {
	driver, dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}

	if err := Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().Str("driver", driver).Msg("database ready")
	return db, nil
}

// Migrate は共有スキーマを適用する。
func Migrate(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	if err := migration.Run(ctx, db, migrations.FS, migrations.Dir, log); err != nil {
		return fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return nil
}

// DSN は設定からドライバー名と接続文字列を組み立てる。
func DSN(cfg config.DatabaseConfig) (driver, dsn string, err error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		target := cfg.DSN
		if target == "" {
			target = defaultSQLitePath
		}
		return DriverSQLite, SQLiteDSN(target), nil
	case DriverPostgres:
		if cfg.DSN != "" {
			return DriverPostgres, cfg.DSN, nil
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return DriverPostgres, u.String(), nil
	default:
		return "", "", fmt.Errorf("未対応のドライバー: %q", cfg.Driver)
	}
}

// SQLiteDSN はファイルパスまたは ":memory:" に共通パラメータを付与する。
func SQLiteDSN(target string) string {
	return target + "?" + sqliteParams
}

// IsUniqueViolation は一意制約違反のエラーかどうかを返す。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
