package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// t.Setenvを使うためこのパッケージのテストは並列実行しない。

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("quiz")
	if err != nil {
		t.Fatalf("Load()でエラーが発生: %v", err)
	}

	if cfg.Port != "5003" {
		t.Errorf("Port = %q, want %q", cfg.Port, "5003")
	}
	if cfg.SecretKey != DevSecretKey {
		t.Errorf("SecretKey = %q, want dev default", cfg.SecretKey)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Gateway.Timeout != 30*time.Second {
		t.Errorf("Gateway.Timeout = %v, want 30s", cfg.Gateway.Timeout)
	}
	if cfg.Redis.QuizTTL != 5*time.Minute {
		t.Errorf("Redis.QuizTTL = %v, want 5m", cfg.Redis.QuizTTL)
	}
	if cfg.RabbitMQ.Exchange != "learnhub.events" {
		t.Errorf("RabbitMQ.Exchange = %q", cfg.RabbitMQ.Exchange)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("CORS.AllowedOrigins = %v, want [*]", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadServicePorts(t *testing.T) {
	want := map[string]string{
		"gateway": "5000", "auth": "5001", "course": "5002",
		"quiz": "5003", "progress": "5004", "report": "5005",
	}
	for service, port := range want {
		cfg, err := Load(service)
		if err != nil {
			t.Fatalf("Load(%q)でエラーが発生: %v", service, err)
		}
		if cfg.Port != port {
			t.Errorf("Load(%q).Port = %q, want %q", service, cfg.Port, port)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("SECRET_KEY", "s3cr3t")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("QUIZ_SERVICE", "http://quiz:5003")
	t.Setenv("GATEWAY_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load("gateway")
	if err != nil {
		t.Fatalf("Load()でエラーが発生: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("Port = %q, want 9100", cfg.Port)
	}
	if cfg.SecretKey != "s3cr3t" {
		t.Errorf("SecretKey = %q", cfg.SecretKey)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Database.Port = %d, want 6543", cfg.Database.Port)
	}
	if cfg.Services.Quiz != "http://quiz:5003" {
		t.Errorf("Services.Quiz = %q", cfg.Services.Quiz)
	}
	if cfg.Gateway.Timeout != 3*time.Second {
		t.Errorf("Gateway.Timeout = %v, want 3s", cfg.Gateway.Timeout)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "http://b.example" {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Log.Pretty {
		t.Error("Log.Pretty = false, want true")
	}
}

func TestLoadProductionSecretGuard(t *testing.T) {
	t.Run("本番環境で開発用シークレットの場合エラーになること", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")

		_, err := Load("auth")
		if !errors.Is(err, ErrDevSecretInProduction) {
			t.Errorf("err = %v, want ErrDevSecretInProduction", err)
		}
	})

	t.Run("本番環境でシークレットが設定されていれば読み込めること", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("SECRET_KEY", "prod-only-secret")

		cfg, err := Load("auth")
		if err != nil {
			t.Fatalf("Load()でエラーが発生: %v", err)
		}
		if !cfg.IsProduction() {
			t.Error("IsProduction() = false, want true")
		}
	})
}

func TestLoadInvalidDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")

	if _, err := Load("course"); err == nil {
		t.Error("未対応のドライバーでエラーが返るべき")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learnhub.yaml")
	content := "REPORT_SERVICE: http://report.internal:5005\nLOG_LEVEL: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("設定ファイルの作成に失敗: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("gateway")
	if err != nil {
		t.Fatalf("Load()でエラーが発生: %v", err)
	}
	if cfg.Services.Report != "http://report.internal:5005" {
		t.Errorf("Services.Report = %q", cfg.Services.Report)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn (環境変数が優先)", cfg.Log.Level)
	}
}
