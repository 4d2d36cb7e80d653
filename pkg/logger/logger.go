// Package logger はサービス共通のzerologロガーを生成する。
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New はサービス名を付与した構造化ロガーを生成する。
// prettyがtrueの場合は人間向けのコンソール形式で出力する。
func New(level string, pretty bool, service string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, level, service)
}

// NewWithWriter は出力先を指定してロガーを生成する。
func NewWithWriter(w io.Writer, level, service string) zerolog.Logger {
	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// ParseLevel はログレベル文字列を解釈する。不明な値はinfoとして扱う。
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
