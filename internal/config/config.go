// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	modeRelease = "release"
	modeTest    = "test"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// 認証設定
	JWTSecret string // セッショントークン署名用の秘密鍵

	// サーバー設定
	Port                   string // APIサーバーのポート番号
	GinMode                string // Ginの実行モード (debug, release, test)
	ShutdownTimeoutSeconds int    // グレースフルシャットダウンの待ち時間（秒）

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// プロキシ設定
	TrustedProxies string // X-Forwarded-For を信頼するプロキシのIP/CIDR（カンマ区切り、空なら信頼しない）

	// 永続化設定
	DatabaseURL string // PostgreSQL接続URL（空の場合は開発用インメモリストア）
	RedisURL    string // レート制限・監査キュー用Redis接続URL

	// 監査ログ設定
	ActivityRetentionHours int // ユーザーごとの監査イベント保持時間
	ActivityMaxEvents      int // ユーザーごとに保持する監査イベント数
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		JWTSecret: getEnv("JWT_SECRET", ""),

		Port:                   getEnv("PORT", "8080"),
		GinMode:                getEnv("GIN_MODE", "debug"),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		TrustedProxies:     getEnv("TRUSTED_PROXIES", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		ActivityRetentionHours: getEnvAsInt("ACTIVITY_RETENTION_HOURS", 720),
		ActivityMaxEvents:      getEnvAsInt("ACTIVITY_MAX_EVENTS", 50),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ActivityMaxEvents <= 0 {
		return fmt.Errorf("ACTIVITY_MAX_EVENTS must be positive")
	}

	// ローカル開発ではインメモリストア・Redisなしでも起動できる
	if c.IsRelease() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in release mode")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in release mode")
		}
	}

	return nil
}

// IsRelease は本番デプロイ（GIN_MODE=release）で動作しているかを返します。
// Cookie の Secure 属性や 500 応答のメッセージ秘匿はこの値で切り替えます。
func (c *Config) IsRelease() bool {
	return c.GinMode == modeRelease
}

// RateLimitEnabled はレート制限を有効にするかを返します。テストモードでは常に無効です。
func (c *Config) RateLimitEnabled() bool {
	return c.GinMode != modeTest && c.RedisURL != ""
}

// TrustedProxyList は信頼するプロキシの一覧を返します。
// 未設定の場合は nil で、クライアント IP は接続元アドレスだけから決まります。
func (c *Config) TrustedProxyList() []string {
	var proxies []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// ActivityRetention は監査イベントの保持期間を返します。
func (c *Config) ActivityRetention() time.Duration {
	if c.ActivityRetentionHours <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.ActivityRetentionHours) * time.Hour
}

// ShutdownTimeout はグレースフルシャットダウンのタイムアウトを返します。
func (c *Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
