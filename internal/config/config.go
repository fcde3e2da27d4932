package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 数据源类型
const (
	SourceMock     = "mock"
	SourceRemote   = "remote"
	SourceDatabase = "database"
)

const defaultSecret = "your-secret-key-change-in-production"

// Config 应用配置
type Config struct {
	Env      string
	Port     string
	LogLevel string
	SiteName string
	SiteUrl  string

	AppSecret         string
	AdminPasswordHash string
	TokenExpiry       time.Duration

	// 数据源：mock / remote / database
	DataSource  string
	DatabaseURL string
	MockLatency time.Duration

	// 托管记录存储
	RecordStoreURL       string
	RecordStoreProjectID string
	RecordStorePublicKey string
	RecordStoreRPS       float64
	RecordStoreTimeout   time.Duration

	// 缓存
	CacheTTL        time.Duration
	SearchCacheSize int
	RefreshCron     string
}

// Load 加载配置（环境变量优先，其次 config.yaml）
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "5005")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SITE_NAME", "ReelShelf")
	v.SetDefault("SITE_URL", "http://localhost:5005")
	v.SetDefault("APP_SECRET", defaultSecret)
	v.SetDefault("TOKEN_EXPIRY_HOURS", 72)
	v.SetDefault("DATA_SOURCE", SourceMock)
	v.SetDefault("MOCK_LATENCY_MS", 0)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "reelshelf")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("RECORDSTORE_RPS", 10)
	v.SetDefault("RECORDSTORE_TIMEOUT_SECONDS", 15)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("SEARCH_CACHE_SIZE", 500)
	v.SetDefault("REFRESH_CRON", "*/15 * * * *")
}

func fromViper(v *viper.Viper) *Config {
	dbURL := v.GetString("DATABASE_URL")
	if dbURL == "" {
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			v.GetString("DB_USER"), v.GetString("DB_PASSWORD"), v.GetString("DB_HOST"),
			v.GetString("DB_PORT"), v.GetString("DB_NAME"), v.GetString("DB_SSLMODE"))
	}

	return &Config{
		Env:      v.GetString("APP_ENV"),
		Port:     v.GetString("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		SiteName: v.GetString("SITE_NAME"),
		SiteUrl:  v.GetString("SITE_URL"),

		AppSecret:         v.GetString("APP_SECRET"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		TokenExpiry:       time.Duration(v.GetInt("TOKEN_EXPIRY_HOURS")) * time.Hour,

		DataSource:  strings.ToLower(v.GetString("DATA_SOURCE")),
		DatabaseURL: dbURL,
		MockLatency: time.Duration(v.GetInt("MOCK_LATENCY_MS")) * time.Millisecond,

		RecordStoreURL:       v.GetString("RECORDSTORE_URL"),
		RecordStoreProjectID: v.GetString("RECORDSTORE_PROJECT_ID"),
		RecordStorePublicKey: v.GetString("RECORDSTORE_PUBLIC_KEY"),
		RecordStoreRPS:       v.GetFloat64("RECORDSTORE_RPS"),
		RecordStoreTimeout:   time.Duration(v.GetInt("RECORDSTORE_TIMEOUT_SECONDS")) * time.Second,

		CacheTTL:        time.Duration(v.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		SearchCacheSize: v.GetInt("SEARCH_CACHE_SIZE"),
		RefreshCron:     v.GetString("REFRESH_CRON"),
	}
}

// Validate 校验数据源所需的配置项
func (c *Config) Validate() error {
	switch c.DataSource {
	case SourceMock, SourceDatabase:
	case SourceRemote:
		if c.RecordStoreURL == "" {
			return fmt.Errorf("RECORDSTORE_URL is required when DATA_SOURCE=remote")
		}
		if c.RecordStoreProjectID == "" {
			return fmt.Errorf("RECORDSTORE_PROJECT_ID is required when DATA_SOURCE=remote")
		}
		if c.RecordStorePublicKey == "" {
			return fmt.Errorf("RECORDSTORE_PUBLIC_KEY is required when DATA_SOURCE=remote")
		}
	default:
		return fmt.Errorf("unknown DATA_SOURCE %q", c.DataSource)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesDefaultSecret 仍在使用默认密钥
func (c *Config) UsesDefaultSecret() bool {
	return c.AppSecret == defaultSecret
}
