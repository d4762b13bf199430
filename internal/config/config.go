package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Telegram TelegramConfig
	Site     SiteConfig
	Task     TaskConfig
}

type ServerConfig struct {
	Port        string
	Mode        string // debug, release, test
	CORSOrigins []string
	StaticDir   string
}

type DatabaseConfig struct {
	Driver string // sqlite, postgres, mysql
	DSN    string
	Debug  bool
}

type LogConfig struct {
	Level    string
	Encoding string // json, console
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	// AdminSecret 兼容旧版 x-admin-secret 头，留空则禁用
	AdminSecret string
}

type StorageConfig struct {
	Provider   string // local, s3, cloudinary；留空时自动选择
	BackendURL string
	LocalDir   string

	// S3
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string
	BasePath  string

	// Cloudinary
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	APIBase  string
}

// TaskConfig 后台任务，cron 表达式含秒字段，留空则不启动
type TaskConfig struct {
	OrderBackfillSpec string
}

type SiteConfig struct {
	URL            string
	PlaceholderImg string
}

// Load 读取 .env 与环境变量
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("SERVER_PORT"),
			Mode:        v.GetString("GIN_MODE"),
			CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
			StaticDir:   v.GetString("STATIC_DIR"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("DB_DRIVER"),
			DSN:    v.GetString("DATABASE_URL"),
			Debug:  v.GetBool("DB_DEBUG"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
		Auth: AuthConfig{
			JWTSecret:      v.GetString("JWT_SECRET"),
			AccessTokenTTL: v.GetDuration("ACCESS_TOKEN_TTL"),
			AdminSecret:    v.GetString("ADMIN_SECRET"),
		},
		Storage: StorageConfig{
			Provider:            v.GetString("STORAGE_PROVIDER"),
			BackendURL:          v.GetString("BACKEND_URL"),
			LocalDir:            v.GetString("STATIC_DIR"),
			Bucket:              v.GetString("AWS_BUCKET"),
			Region:              v.GetString("AWS_REGION"),
			AccessKey:           v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:           v.GetString("AWS_SECRET_ACCESS_KEY"),
			CDNDomain:           v.GetString("AWS_CDN_DOMAIN"),
			BasePath:            v.GetString("STORAGE_BASE_PATH"),
			CloudinaryCloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			CloudinaryAPIKey:    v.GetString("CLOUDINARY_API_KEY"),
			CloudinaryAPISecret: v.GetString("CLOUDINARY_API_SECRET"),
		},
		Telegram: TelegramConfig{
			BotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
			ChatID:   v.GetString("TELEGRAM_CHAT_ID"),
			APIBase:  v.GetString("TELEGRAM_API_BASE"),
		},
		Site: SiteConfig{
			URL:            v.GetString("SITE_URL"),
			PlaceholderImg: v.GetString("PLACEHOLDER_IMAGE"),
		},
		Task: TaskConfig{
			OrderBackfillSpec: v.GetString("ORDER_BACKFILL_CRON"),
		},
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = cfg.Storage.DetectProvider()
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("STATIC_DIR", "static")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "tesla_parts.db")
	v.SetDefault("DB_DEBUG", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
	v.SetDefault("JWT_SECRET", "tesla-parts-secret-change-in-production")
	v.SetDefault("ACCESS_TOKEN_TTL", "30m")
	v.SetDefault("BACKEND_URL", "http://127.0.0.1:8000")
	v.SetDefault("STORAGE_BASE_PATH", "tesla-parts")
	v.SetDefault("TELEGRAM_API_BASE", "https://api.telegram.org")
	v.SetDefault("SITE_URL", "https://tesla-parts.com.ua")
	v.SetDefault("ORDER_BACKFILL_CRON", "0 0 * * * *")
	v.SetDefault("PLACEHOLDER_IMAGE", "https://placehold.co/600x400?text=No+Image")
}

// DetectProvider 根据凭证自动选择存储：Cloudinary 凭证齐全时走图床，否则本地磁盘
func (c StorageConfig) DetectProvider() string {
	if c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != "" {
		return "cloudinary"
	}
	return "local"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
