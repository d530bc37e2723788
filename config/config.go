// Package config provides environment-driven configuration for the brooder service
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration loaded from environment variables
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Server    ServerConfig    `json:"server"`
	JWT       JWTConfig       `json:"jwt"`
	Telegram  TelegramConfig  `json:"telegram"`
	ERP       ERPConfig       `json:"erp"`
	Guard     GuardConfig     `json:"guard"`
	Session   SessionConfig   `json:"session"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Admin     AdminConfig     `json:"admin"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig holds redis connection settings for the admin cache
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Addr returns the host:port pair
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
}

// JWTConfig holds token signing settings for the admin API
type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
}

// TelegramConfig holds Bot API delivery settings
type TelegramConfig struct {
	BotToken   string        `json:"bot_token"`
	APIBaseURL string        `json:"api_base_url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// ERPConfig holds the 1C ledger export endpoint settings
type ERPConfig struct {
	Enabled  bool          `json:"enabled"`
	BaseURL  string        `json:"base_url"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	Timeout  time.Duration `json:"timeout"`
}

// GuardConfig holds the phone trust guard thresholds
type GuardConfig struct {
	MaxAttempts           int           `json:"max_attempts"`
	AttemptWindow         time.Duration `json:"attempt_window"`
	BlockDuration         time.Duration `json:"block_duration"`
	UnverifiedMaxQuantity int           `json:"unverified_max_quantity"`
}

// SessionConfig holds the conversation session store settings
type SessionConfig struct {
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// SchedulerConfig holds the daily maintenance loop settings
type SchedulerConfig struct {
	Enabled       bool          `json:"enabled"`
	TickInterval  time.Duration `json:"tick_interval"`
	SweepHour     int           `json:"sweep_hour"`
	ReminderHour  int           `json:"reminder_hour"`
	AdminCacheTTL time.Duration `json:"admin_cache_ttl"`
}

// LoggingConfig holds file rotation settings
type LoggingConfig struct {
	Dir        string `json:"dir"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// AdminConfig holds bootstrap admin identities, the ops chat, and the shared
// key admins exchange for an API token
type AdminConfig struct {
	BootstrapIDs []int64 `json:"bootstrap_ids"`
	OpsChatID    int64   `json:"ops_chat_id"`
	AuthKey      string  `json:"auth_key"`
}

// Load reads configuration from the environment, with .env support
func Load() (*Config, error) {
	// .env is optional; ignore absence
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "brooder"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024),
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
		},
		JWT: JWTConfig{
			SecretKey:      getEnvString("JWT_SECRET_KEY", ""),
			AccessTokenTTL: getEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour),
			Issuer:         getEnvString("JWT_ISSUER", "brooder"),
		},
		Telegram: TelegramConfig{
			BotToken:   getEnvString("TELEGRAM_BOT_TOKEN", ""),
			APIBaseURL: getEnvString("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			Timeout:    getEnvDuration("TELEGRAM_TIMEOUT", 10*time.Second),
			MaxRetries: getEnvInt("TELEGRAM_MAX_RETRIES", 3),
			RetryDelay: getEnvDuration("TELEGRAM_RETRY_DELAY", 2*time.Second),
		},
		ERP: ERPConfig{
			Enabled:  getEnvBool("ERP_ENABLED", false),
			BaseURL:  getEnvString("ERP_BASE_URL", ""),
			Username: getEnvString("ERP_USERNAME", ""),
			Password: getEnvString("ERP_PASSWORD", ""),
			Timeout:  getEnvDuration("ERP_TIMEOUT", 15*time.Second),
		},
		Guard: GuardConfig{
			MaxAttempts:           getEnvInt("GUARD_MAX_ATTEMPTS", 2),
			AttemptWindow:         getEnvDuration("GUARD_ATTEMPT_WINDOW", 24*time.Hour),
			BlockDuration:         getEnvDuration("GUARD_BLOCK_DURATION", 24*time.Hour),
			UnverifiedMaxQuantity: getEnvInt("GUARD_UNVERIFIED_MAX_QUANTITY", 50),
		},
		Session: SessionConfig{
			TTL:             getEnvDuration("SESSION_TTL", 30*time.Minute),
			CleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:       getEnvBool("SCHEDULER_ENABLED", true),
			TickInterval:  getEnvDuration("SCHEDULER_TICK_INTERVAL", time.Minute),
			SweepHour:     getEnvInt("SCHEDULER_SWEEP_HOUR", 0),
			ReminderHour:  getEnvInt("SCHEDULER_REMINDER_HOUR", 18),
			AdminCacheTTL: getEnvDuration("SCHEDULER_ADMIN_CACHE_TTL", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Dir:        getEnvString("LOG_DIR", "data/logs"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Admin: AdminConfig{
			BootstrapIDs: getEnvInt64Slice("ADMIN_BOOTSTRAP_IDS", nil),
			OpsChatID:    getEnvInt64("ADMIN_OPS_CHAT_ID", 0),
			AuthKey:      getEnvString("ADMIN_AUTH_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot have sensible defaults
func (c *Config) Validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters")
	}
	if c.Guard.MaxAttempts < 1 {
		return fmt.Errorf("GUARD_MAX_ATTEMPTS must be at least 1")
	}
	if c.Guard.UnverifiedMaxQuantity < 1 {
		return fmt.Errorf("GUARD_UNVERIFIED_MAX_QUANTITY must be at least 1")
	}
	if c.Scheduler.SweepHour < 0 || c.Scheduler.SweepHour > 23 {
		return fmt.Errorf("SCHEDULER_SWEEP_HOUR must be between 0 and 23")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvInt64Slice(key string, defaultValue []int64) []int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
