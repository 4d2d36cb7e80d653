// クイズサービスのエントリポイント。
// クイズの出題と回答の採点を担当する。REDIS_ADDRが設定されていればクイズ定義をRedisにキャッシュする。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/learnhub/internal/quiz"
	"github.com/nao1215/learnhub/pkg/cache"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/database"
	"github.com/nao1215/learnhub/pkg/logger"
	"github.com/nao1215/learnhub/pkg/messaging"
	"github.com/nao1215/learnhub/pkg/token"
)

func main() {
	cfg, err := config.Load("quiz")
	if err != nil {
		fallback := logger.New("info", false, "quiz")
		fallback.Fatal().Err(err).Msg("設定の読み込みに失敗")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "quiz")

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

	var quizCache cache.Cache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "learnhub:",
		})
		if err != nil {
			// キャッシュ無しでも動作できる
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redisに接続できないためキャッシュを無効化します")
		} else {
			defer func() { _ = redisCache.Close() }()
			quizCache = redisCache
		}
	}

	server := quiz.NewServer(db, quiz.Options{
		Port:     cfg.Port,
		Verifier: token.NewCodec(cfg.SecretKey, token.DefaultTTL),
		Events:   events,
		Cache:    quizCache,
		CacheTTL: cfg.Redis.QuizTTL,
		Log:      log,
	})

	log.Info().Str("port", cfg.Port).Msg("クイズサービスを起動します")
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("クイズサービスの起動に失敗")
	}
}
