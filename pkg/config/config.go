// Package config はプロセス起動時に一度だけ読み込む不変の設定を提供する。
//
// 値は既定値、任意のYAMLファイル（CONFIG_FILE）、環境変数の順に上書きされる。
// 読み込み後のConfigは変更せず、各コンポーネントの生成時に必要な値を渡す。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DevSecretKey は開発用の既定シークレット。本番環境では使用できない。
const DevSecretKey = "dev-secret-key-change-in-prod"

// EnvProduction は本番環境を表すENVIRONMENTの値。
const EnvProduction = "production"

// ErrDevSecretInProduction は本番環境で開発用シークレットが設定されていることを表す。
var ErrDevSecretInProduction = errors.New("SECRET_KEY must be set in production")

// Config はサービスプロセス全体の設定。
type Config struct {
	Service     string
	Port        string
	Environment string
	SecretKey   string
	Database    DatabaseConfig
	Services    ServiceURLs
	Gateway     GatewayConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Log         LogConfig
	CORS        CORSConfig
}

// DatabaseConfig はデータベース接続設定。
type DatabaseConfig struct {
	// Driver は "sqlite" または "postgres"。
	Driver string
	// DSN が設定されていればHost等より優先される。
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// ServiceURLs はgatewayが転送するバックエンドのベースURL。
type ServiceURLs struct {
	Auth     string
	Course   string
	Quiz     string
	Progress string
	Report   string
}

// GatewayConfig はgateway固有の設定。
type GatewayConfig struct {
	Timeout time.Duration
}

// RedisConfig はRedis接続設定。Addrが空ならキャッシュを使わない。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QuizTTL  time.Duration
}

// RabbitMQConfig はドメインイベント発行先の設定。URLが空ならログ出力のみ。
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// LogConfig はロガー設定。
type LogConfig struct {
	Level  string
	Pretty bool
}

// CORSConfig はCORS設定。
type CORSConfig struct {
	AllowedOrigins []string
}

// defaultPorts はサービスごとの既定ポート。
var defaultPorts = map[string]string{
	"gateway":  "5000",
	"auth":     "5001",
	"course":   "5002",
	"quiz":     "5003",
	"progress": "5004",
	"report":   "5005",
}

// Load はサービス名に応じた既定値を適用して設定を読み込む。
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	cfg := &Config{
		Service:     service,
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		SecretKey:   v.GetString("SECRET_KEY"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:      v.GetString("DB_DSN"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
		Services: ServiceURLs{
			Auth:     v.GetString("AUTH_SERVICE"),
			Course:   v.GetString("COURSE_SERVICE"),
			Quiz:     v.GetString("QUIZ_SERVICE"),
			Progress: v.GetString("PROGRESS_SERVICE"),
			Report:   v.GetString("REPORT_SERVICE"),
		},
		Gateway: GatewayConfig{
			Timeout: v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			QuizTTL:  v.GetDuration("QUIZ_CACHE_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("EVENTS_EXCHANGE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is empty")
	}
	if c.IsProduction() && c.SecretKey == DevSecretKey {
		return ErrDevSecretInProduction
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %q", c.Database.Driver)
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive: %s", c.Gateway.Timeout)
	}
	return nil
}

func setDefaults(v *viper.Viper, service string) {
	port, ok := defaultPorts[service]
	if !ok {
		port = "8080"
	}
	v.SetDefault("PORT", port)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SECRET_KEY", DevSecretKey)

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "learnhub")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "learnhub")

	v.SetDefault("AUTH_SERVICE", "http://localhost:5001")
	v.SetDefault("COURSE_SERVICE", "http://localhost:5002")
	v.SetDefault("QUIZ_SERVICE", "http://localhost:5003")
	v.SetDefault("PROGRESS_SERVICE", "http://localhost:5004")
	v.SetDefault("REPORT_SERVICE", "http://localhost:5005")
	v.SetDefault("GATEWAY_TIMEOUT", "30s")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUIZ_CACHE_TTL", "5m")

	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "learnhub.events")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("CONFIG_FILE", "")
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
