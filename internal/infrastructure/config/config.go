package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Corpus      CorpusConfig    `mapstructure:"corpus"`
	Ranking     RankingConfig   `mapstructure:"ranking"`
	Feedback    FeedbackConfig  `mapstructure:"feedback"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Detector    DetectorConfig  `mapstructure:"detector"`
	Image       ImageConfig     `mapstructure:"image"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
	LogDir      string          `mapstructure:"log_dir"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CorpusConfig 食譜資料來源
type CorpusConfig struct {
	RecipesPath       string `mapstructure:"recipes_path"`
	SubstitutionsPath string `mapstructure:"substitutions_path"`
}

// RankingConfig 排序設定
type RankingConfig struct {
	DefaultLimit   int `mapstructure:"default_limit"`
	MaxLimit       int `mapstructure:"max_limit"`
	MaxSubstitutes int `mapstructure:"max_substitutes"`
}

// FeedbackConfig 評分與收藏儲存設定
type FeedbackConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// DetectorConfig 食材偵測設定
type DetectorConfig struct {
	Provider  string        `mapstructure:"provider"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64  `mapstructure:"max_size_bytes"`
	UploadDir    string `mapstructure:"upload_dir"`
}

// MetricsConfig Prometheus 指標設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時僅使用環境變數與預設值
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("corpus.recipes_path", "RECIPES_PATH")
	viper.BindEnv("corpus.substitutions_path", "SUBSTITUTIONS_PATH")
	viper.BindEnv("feedback.data_dir", "FEEDBACK_DATA_DIR")
	viper.BindEnv("detector.provider", "DETECTOR_PROVIDER")
	viper.BindEnv("detector.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("detector.model", "OPENROUTER_MODEL")
	viper.BindEnv("detector.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.driver", "CACHE_DRIVER")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("metrics.enabled", "METRICS_ENABLED")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-recommender")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 資料來源
	viper.SetDefault("corpus.recipes_path", "data/recipes.json")
	viper.SetDefault("corpus.substitutions_path", "data/substitutions.json")

	// 排序設定
	viper.SetDefault("ranking.default_limit", 10)
	viper.SetDefault("ranking.max_limit", 50)
	viper.SetDefault("ranking.max_substitutes", 3)

	viper.SetDefault("feedback.data_dir", "data/feedback")

	// 快取設定
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.driver", "memory")
	viper.SetDefault("cache.max_size", 1000)
	viper.SetDefault("cache.ttl", "10m")
	viper.SetDefault("cache.cleanup_interval", "1m")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
	viper.SetDefault("rate_limit.burst", 20)

	// 偵測設定
	viper.SetDefault("detector.provider", "mock")
	viper.SetDefault("detector.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("detector.model", "qwen/qwen2.5-vl-72b-instruct:free")
	viper.SetDefault("detector.max_tokens", 1000)
	viper.SetDefault("detector.timeout", "60s")
	viper.SetDefault("detector.workers", 2)
	viper.SetDefault("detector.queue_size", 20)

	// 圖片設定
	viper.SetDefault("image.max_size_bytes", 16*1024*1024) // 16MB
	viper.SetDefault("image.upload_dir", "uploads")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("dedup_window", "1s")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_dir", "logs")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port <= 0 {
		return fmt.Errorf("server port is required")
	}

	if config.Corpus.RecipesPath == "" {
		return fmt.Errorf("recipes path is required")
	}
	if config.Corpus.SubstitutionsPath == "" {
		return fmt.Errorf("substitutions path is required")
	}

	// 驗證排序設定
	if config.Ranking.DefaultLimit <= 0 || config.Ranking.MaxLimit <= 0 {
		return fmt.Errorf("invalid ranking limits")
	}
	if config.Ranking.DefaultLimit > config.Ranking.MaxLimit {
		return fmt.Errorf("default limit %d exceeds max limit %d", config.Ranking.DefaultLimit, config.Ranking.MaxLimit)
	}
	if config.Ranking.MaxSubstitutes <= 0 {
		return fmt.Errorf("invalid max substitutes")
	}

	if config.Feedback.DataDir == "" {
		return fmt.Errorf("feedback data dir is required")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Driver {
		case "memory":
			if config.Cache.MaxSize <= 0 {
				return fmt.Errorf("invalid cache max size")
			}
			if config.Cache.CleanupInterval <= 0 {
				return fmt.Errorf("invalid cache cleanup interval")
			}
		case "redis":
			if config.Redis.Addr == "" {
				return fmt.Errorf("redis addr is required for redis cache")
			}
		default:
			return fmt.Errorf("unknown cache driver %q", config.Cache.Driver)
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit")
		}
		if config.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid rate limit burst")
		}
	}

	// 驗證偵測設定
	switch config.Detector.Provider {
	case "mock":
	case "openrouter":
		if config.Detector.APIKey == "" {
			return fmt.Errorf("openrouter api key is required")
		}
	default:
		return fmt.Errorf("unknown detector provider %q", config.Detector.Provider)
	}
	if config.Detector.Workers <= 0 {
		return fmt.Errorf("invalid detector workers")
	}
	if config.Detector.QueueSize <= 0 {
		return fmt.Errorf("invalid detector queue size")
	}

	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}

	return nil
}
