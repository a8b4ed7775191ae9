package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sanosuguru/lecoup2plus-reservation/internal/domain/day"
)

// 利用可能なストレージバックエンド
const (
	BackendFile     = "file"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env       string
	Server    ServerConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Badger    BadgerConfig
	Redis     RedisConfig
	AMQP      AMQPConfig
	Assistant AssistantConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	DaysFile  string
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	BodyLimit       string
	AllowOrigins    []string
}

// StorageConfig は座席の保存先設定
type StorageConfig struct {
	Backend   string
	DataDir   string
	PublicDir string
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MongoConfig はMongoDB設定
type MongoConfig struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// BadgerConfig は組み込みKVストア設定
type BadgerConfig struct {
	Path       string
	SyncWrites bool
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// AMQPConfig は保存通知の送信先設定。URLが空なら通知しない
type AMQPConfig struct {
	URL   string
	Queue string
}

// AssistantConfig はAIアシスタント設定
type AssistantConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	MaxRetries      int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	CacheTTL        time.Duration
	RateLimit       float64
	RateBurst       int
}

// AuditConfig は座席監査ワーカー設定。Interval が0なら定期実行しない
type AuditConfig struct {
	Interval time.Duration
}

// MetricsConfig は /metrics の認証設定
type MetricsConfig struct {
	User     string
	Password string
}

// Load は環境変数から設定を読み込む
// カレントディレクトリに .env があれば先に読み込む。既存の環境変数は上書きしない
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "3000"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			BodyLimit:       getEnv("SERVER_BODY_LIMIT", "1M"),
			AllowOrigins:    getListEnv("CORS_ALLOW_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", BackendFile),
			DataDir:   getEnv("DATA_DIR", "data"),
			PublicDir: getEnv("PUBLIC_DIR", "public"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lecoup2plus"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "lecoup2plus"),
			Collection:     getEnv("MONGO_COLLECTION", "seats"),
			ConnectTimeout: getDurationEnv("MONGO_CONNECT_TIMEOUT", 5*time.Second),
		},
		Badger: BadgerConfig{
			Path:       getEnv("BADGER_PATH", "data/badger"),
			SyncWrites: getBoolEnv("BADGER_SYNC_WRITES", true),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		AMQP: AMQPConfig{
			URL:   getEnv("AMQP_URL", ""),
			Queue: getEnv("AMQP_QUEUE", "seats.saved"),
		},
		Assistant: AssistantConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			BaseURL:         getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.5-flash-preview-09-2025"),
			Temperature:     getFloatEnv("ASSISTANT_TEMPERATURE", 0.1),
			MaxOutputTokens: getIntEnv("ASSISTANT_MAX_OUTPUT_TOKENS", 2048),
			MaxRetries:      getIntEnv("ASSISTANT_MAX_RETRIES", 5),
			InitialBackoff:  getDurationEnv("ASSISTANT_INITIAL_BACKOFF", time.Second),
			MaxBackoff:      getDurationEnv("ASSISTANT_MAX_BACKOFF", 16*time.Second),
			CacheTTL:        getDurationEnv("ASSISTANT_CACHE_TTL", 10*time.Minute),
			RateLimit:       getFloatEnv("ASSISTANT_RATE_LIMIT", 1),
			RateBurst:       getIntEnv("ASSISTANT_RATE_BURST", 5),
		},
		Audit: AuditConfig{
			Interval: getDurationEnv("AUDIT_INTERVAL", 0),
		},
		Metrics: MetricsConfig{
			User:     getEnv("METRICS_USER", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
		DaysFile: getEnv("DAYS_FILE", ""),
	}
}

// Validate は起動前に設定の整合性を確認する
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendMongo, BackendPostgres, BackendBadger:
	default:
		return fmt.Errorf("未対応のSTORAGE_BACKENDです: %q", c.Storage.Backend)
	}
	if c.Assistant.RateLimit < 0 || c.Assistant.RateBurst < 0 {
		return errors.New("ASSISTANT_RATE_LIMIT と ASSISTANT_RATE_BURST は0以上である必要があります")
	}
	if c.Assistant.Temperature < 0 {
		return errors.New("ASSISTANT_TEMPERATURE は0以上である必要があります")
	}
	if c.Assistant.MaxRetries < 1 {
		return errors.New("ASSISTANT_MAX_RETRIES は1以上である必要があります")
	}
	return nil
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type daysFile struct {
	Days []struct {
		Token string `yaml:"token"`
		Label string `yaml:"label"`
	} `yaml:"days"`
}

// LoadDays はYAMLファイルから公演日を読み込む。path が空なら既定の3日を返す
//
//	days:
//	  - token: ven
//	    label: Vendredi
func LoadDays(path string) ([]day.Day, error) {
	if path == "" {
		return day.Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("公演日ファイルの読み込みに失敗: %w", err)
	}
	var f daysFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("公演日ファイルの解析に失敗: %w", err)
	}
	days := make([]day.Day, 0, len(f.Days))
	for _, d := range f.Days {
		days = append(days, day.Day{Token: d.Token, Label: d.Label})
	}
	return days, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
