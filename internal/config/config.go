package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ricirt/autoblog/internal/domain"
)

// Store and scheduler drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	SchedulerMemory = "memory"
	SchedulerRedis  = "redis"
)

// Config holds all runtime configuration loaded from environment variables
// and the optional settings file. Environment variables win over the file.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogFormat       string

	// Storage
	StoreDriver string
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	SQLitePath  string

	// Job scheduler
	SchedulerDriver string
	RedisAddr       string
	QueueCapacity   int

	// Lifecycle events; empty brokers disables publishing
	KafkaBrokers []string
	KafkaTopic   string

	// Providers
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	StabilityAPIURL   string
	ProviderRateLimit int
	Temperature       float64
	TextTimeout       time.Duration
	ImageTimeout      time.Duration

	// Secret store: the Stability key is kept encrypted with a key derived from the salt
	EncryptionSalt        string
	StabilityKeyEncrypted string

	// API
	AdminToken    string
	PublicBaseURL string
	AdminBaseURL  string

	// Workers
	WorkerCount   int
	StaleAfter    time.Duration
	StaleInterval time.Duration

	// Defaults fill every field a generate request leaves out.
	Defaults domain.Options
}

func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	settings, err := LoadSettings(os.Getenv("SETTINGS_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		LogFormat:       getEnv("LOG_FORMAT", "json"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),
		SQLitePath:  getEnv("SQLITE_PATH", "autoblog.db"),

		SchedulerDriver: strings.ToLower(getEnv("SCHEDULER_DRIVER", SchedulerMemory)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		QueueCapacity:   getInt("QUEUE_CAPACITY", 1000),

		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "autoblog.articles"),

		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		StabilityAPIURL:   getEnv("STABILITY_API_URL", "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"),
		ProviderRateLimit: getInt("PROVIDER_RATE_LIMIT", 2),
		Temperature:       getFloat("TEMPERATURE", 0.7),
		TextTimeout:       getDuration("TEXT_TIMEOUT", 120*time.Second),
		ImageTimeout:      getDuration("IMAGE_TIMEOUT", 120*time.Second),

		EncryptionSalt:        os.Getenv("ENCRYPTION_SALT"),
		StabilityKeyEncrypted: getEnv("STABILITY_API_KEY_ENCRYPTED", settings.Credentials.StabilityAPIKey),

		AdminToken:    os.Getenv("ADMIN_TOKEN"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		AdminBaseURL:  strings.TrimRight(getEnv("ADMIN_BASE_URL", "http://localhost:8080/admin"), "/"),

		WorkerCount:   getInt("WORKER_COUNT", 4),
		StaleAfter:    getDuration("STALE_AFTER", 15*time.Minute),
		StaleInterval: getDuration("STALE_INTERVAL", time.Minute),

		Defaults: settings.Defaults.apply(BuiltinDefaults()),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuiltinDefaults are the generation options used when neither the settings
// file nor the request provides a value.
func BuiltinDefaults() domain.Options {
	return domain.Options{
		WordCount:       1500,
		ArticleType:     domain.ArticleBlogPost,
		Tone:            "informative",
		POV:             "third",
		FAQCount:        3,
		TakeawayCount:   3,
		PostStatus:      domain.PostDraft,
		ImageProvider:   domain.ImageProviderNone,
		ImageStyle:      "photorealistic",
		InternalLinking: true,
		MaxLinks:        3,
	}
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreSQLite:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.SchedulerDriver {
	case SchedulerMemory, SchedulerRedis:
	default:
		return fmt.Errorf("unknown SCHEDULER_DRIVER %q", c.SchedulerDriver)
	}

	if c.AdminToken == "" {
		return fmt.Errorf("ADMIN_TOKEN is required")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("QUEUE_CAPACITY must be at least 1")
	}
	if c.StaleInterval <= 0 {
		return fmt.Errorf("STALE_INTERVAL must be positive")
	}
	if c.TextTimeout <= 0 || c.ImageTimeout <= 0 {
		return fmt.Errorf("TEXT_TIMEOUT and IMAGE_TIMEOUT must be positive")
	}
	// A run still inside its provider timeouts must never look stale.
	if c.StaleAfter <= c.TextTimeout+c.ImageTimeout {
		return fmt.Errorf("STALE_AFTER (%s) must exceed TEXT_TIMEOUT + IMAGE_TIMEOUT (%s)",
			c.StaleAfter, c.TextTimeout+c.ImageTimeout)
	}
	return nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getList splits a comma-separated variable, dropping blanks.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
