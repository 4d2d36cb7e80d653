// API Gatewayのエントリポイント。
// クライアントからの唯一の入口として、/api配下のリクエストを各バックエンドへそのまま転送する。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/learnhub/internal/gateway"
	"github.com/nao1215/learnhub/pkg/config"
	"github.com/nao1215/learnhub/pkg/logger"
)

func main() {
	cfg, err := config.Load("gateway")
	if err != nil {
		fallback := logger.New("info", false, "gateway")
		fallback.Fatal().Err(err).Msg("設定の読み込みに失敗")
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty, "gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := gateway.NewServer(gateway.Options{
		Port:           cfg.Port,
		Services:       cfg.Services,
		Timeout:        cfg.Gateway.Timeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Log:            log,
	})

	log.Info().Str("port", cfg.Port).Msg("Gatewayサービスを起動します")
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Gatewayサービスの起動に失敗")
	}
}
