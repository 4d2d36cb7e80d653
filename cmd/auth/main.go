// 認証サービスのエントリポイント。
// ユーザー登録、ログイン、トークン検証を担当する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/learnhub/internal/auth"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/database"
	"github.com/nao1215/learnhub/pkg/logger"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/token"
)

func main() {
	cfg, err := config.Load("auth")
	if err != nil {
		fallback := logger.New("info", false, "auth")
		fallback.Fatal().Err(err).Msg("設定の読み込みに失敗")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "auth")

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

	codec := token.NewCodec(cfg.SecretKey, token.DefaultTTL)
	server := auth.NewServer(db, auth.Options{
		Port:   cfg.Port,
		Codec:  codec,
		Events: events,
		Log:    log,
	})

	log.Info().Str("port", cfg.Port).Dur("token_ttl", codec.TTL()).Msg("認証サービスを起動します")
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("認証サービスの起動に失敗")
	}
}
