// コースサービスのエントリポイント。
// コース・モジュール・レッスンのカタログを管理する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/learnhub/internal/course"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/database"
	"github.com/nao1215/learnhub/pkg/logger"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/token"
)

func main() {
	cfg, err := config.Load("course")
	if err != nil {
		fallback := logger.New("info", false, "course")
		fallback.Fatal().Err(err).Msg("設定の読み込みに失敗")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "course")

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

	server := course.NewServer(db, course.Options{
		Port:     cfg.Port,
		Verifier: token.NewCodec(cfg.SecretKey, token.DefaultTTL),
		Events:   events,
		Log:      log,
	})

	log.Info().Str("port", cfg.Port).Msg("コースサービスを起動します")
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("コースサービスの起動に失敗")
	}
}
