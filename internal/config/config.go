package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

type (
	Config struct {
		App
		HTTP
		Global
		Database
		Cache
		Auth
		Ingest
		Tasks
		Log
	}

	App struct {
		Environment string // development, test or production
	}
	HTTP struct {
		Port      int32
		Host      string
		APIPrefix string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		URL           string // <engine>[+async]://..., the driver token picks the session mode
		MaxPoolSize   int
		MinPoolSize   int
		PoolRecycle   time.Duration
		PoolPrePing   bool
		PoolTimeout   time.Duration
		DropOnStartup bool
	}
	Cache struct {
		Enabled       bool
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		KeyExpiry     time.Duration
	}
	Auth struct {
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
	}
	Ingest struct {
		UploadDir  string
		InboxDir   string // <InboxDir>/<user email>/*.xlsx is picked up on schedule
		Enabled    bool
		Schedule   string   // Cron format: "*/5 * * * *" = every 5 minutes
		SheetNames []string // accepted sheet names, first match wins
	}
	Tasks struct {
		Enabled           bool
		DatabasePath      string
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Log struct {
		Development bool
	}
)

// LoadEnvFile loads <dir>/<APP_ENV>.env into the process environment when it
// exists. Variables already set in the environment win.
func LoadEnvFile(dir string) error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}
	path := filepath.Join(dir, env+".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", EnvDevelopment)
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("api_prefix", "/api")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	// Database defaults
	v.SetDefault("database_url", DefaultDatabaseURL)
	v.SetDefault("db_max_pool_size", 10)
	v.SetDefault("db_min_pool_size", 5)
	v.SetDefault("db_pool_recycle", "1h")
	v.SetDefault("db_pool_pre_ping", true)
	v.SetDefault("db_pool_timeout", "30s")
	v.SetDefault("db_drop_on_startup", false)

	// Cache defaults
	v.SetDefault("cache_enabled", false)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_expiry", "120s")

	// Auth defaults
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("auth_secure_cookies", true)

	// Spreadsheet ingestion defaults
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("ingest_inbox_dir", "./inbox")
	v.SetDefault("ingest_enabled", false)
	v.SetDefault("ingest_schedule", "*/5 * * * *")
	v.SetDefault("ingest_sheet_names", strings.Join(DefaultSheetNames, ","))

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", DefaultTasksDatabasePath)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("log_development", false)

	return &Config{
		App: App{
			Environment: strings.ToLower(v.GetString("APP_ENV")),
		},
		HTTP: HTTP{
			Port:      v.GetInt32("PORT"),
			Host:      v.GetString("HOST"),
			APIPrefix: v.GetString("API_PREFIX"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			URL:           v.GetString("DATABASE_URL"),
			MaxPoolSize:   v.GetInt("DB_MAX_POOL_SIZE"),
			MinPoolSize:   v.GetInt("DB_MIN_POOL_SIZE"),
			PoolRecycle:   v.GetDuration("DB_POOL_RECYCLE"),
			PoolPrePing:   v.GetBool("DB_POOL_PRE_PING"),
			PoolTimeout:   v.GetDuration("DB_POOL_TIMEOUT"),
			DropOnStartup: v.GetBool("DB_DROP_ON_STARTUP"),
		},
		Cache: Cache{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			KeyExpiry:     v.GetDuration("REDIS_KEY_EXPIRY"),
		},
		Auth: Auth{
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		Ingest: Ingest{
			UploadDir:  v.GetString("UPLOAD_DIR"),
			InboxDir:   v.GetString("INGEST_INBOX_DIR"),
			Enabled:    v.GetBool("INGEST_ENABLED"),
			Schedule:   v.GetString("INGEST_SCHEDULE"),
			SheetNames: splitList(v.GetString("INGEST_SHEET_NAMES")),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			DatabasePath:      v.GetString("TASKS_DATABASE_PATH"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Log: Log{
			Development: v.GetBool("LOG_DEVELOPMENT"),
		},
	}
}

// splitList parses a comma separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IsTest reports whether the application runs in the test environment.
func (a App) IsTest() bool { return a.Environment == EnvTest }
