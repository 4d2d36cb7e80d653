// 進捗サービスのエントリポイント。
// ユーザーごとのレッスン開始・完了状態を管理する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/learnhub/internal/progress"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/database"
	"github.com/nao1215/learnhub/pkg/logger"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/token"
)

func main() {
	cfg, err := config.Load("progress")
	if err != nil {
		fallback := logger.New("info", false, "progress")
		fallback.Fatal().Err(err).Msg("設定の読み込みに失敗")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "progress")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("データベースの初期化に失敗")
	}
	defer func() { _ = db.Close() }()

	events, err := messaging.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("イベント発行先の初期化に失敗")
	}
	defer func() { _ = events.Close() }()

	server := progress.NewServer(db, progress.Options{
		Port:     cfg.Port,
		Verifier: token.NewCodec(cfg.SecretKey, token.DefaultTTL),
		Events:   events,
		Log:      log,
	})

	log.Info().Str("port", cfg.Port).Msg("進捗サービスを起動します")
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("進捗サービスの起動に失敗")
	}
}
