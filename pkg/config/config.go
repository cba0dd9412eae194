package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Migrations    MigrationsConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Storage       StorageConfig
	Identity      IdentityConfig
	Features      FeatureConfig
	Notifications NotificationsConfig
	Gradebook     GradebookConfig
	Calendar      CalendarConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// MigrationsConfig controls embedded schema migrations at boot.
type MigrationsConfig struct {
	AutoRun bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig configures attachment persistence and signed download links.
type StorageConfig struct {
	AttachmentsDir    string
	AcademicYearsDir  string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	MaxFileSizeBytes  int64
	MaxFilesPerSubmit int
}

// IdentityConfig governs how the caller identity is resolved.
type IdentityConfig struct {
	// AllowLegacy accepts the unverified x-user-id header / userId query parameter.
	AllowLegacy bool
}

// FeatureConfig holds the schema capability switches. A capability is active only when
// its flag is on and, with SchemaProbe enabled, the backing table exists at startup.
type FeatureConfig struct {
	SchemaProbe   bool
	Classwork     bool
	Submissions   bool
	Gradebook     bool
	Instructors   bool
	Notifications bool
	AcademicYears bool
}

// NotificationsConfig tunes the notification dispatcher and SSE stream.
type NotificationsConfig struct {
	Enabled      bool
	Workers      int
	Retries      int
	PingInterval time.Duration
	MaxPings     int
}

// GradebookConfig tunes gradebook config caching.
type GradebookConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// CalendarConfig bounds the calendar feed.
type CalendarConfig struct {
	EventLimit int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Migrations = MigrationsConfig{AutoRun: v.GetBool("DB_AUTO_MIGRATE")}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxFileSize := v.GetInt64("ATTACHMENTS_MAX_FILE_SIZE")
	if maxFileSize <= 0 {
		maxFileSize = 20 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		AttachmentsDir:    v.GetString("ATTACHMENTS_STORAGE_DIR"),
		AcademicYearsDir:  v.GetString("ACADEMIC_YEARS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("ATTACHMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("ATTACHMENTS_SIGNED_URL_TTL"), time.Hour),
		MaxFileSizeBytes:  maxFileSize,
		MaxFilesPerSubmit: v.GetInt("ATTACHMENTS_MAX_FILES"),
	}

	cfg.Identity = IdentityConfig{AllowLegacy: v.GetBool("IDENTITY_ALLOW_LEGACY")}

	cfg.Features = FeatureConfig{
		SchemaProbe:   v.GetBool("SCHEMA_PROBE"),
		Classwork:     v.GetBool("ENABLE_CLASSWORK"),
		Submissions:   v.GetBool("ENABLE_SUBMISSIONS"),
		Gradebook:     v.GetBool("ENABLE_GRADEBOOK"),
		Instructors:   v.GetBool("ENABLE_CLASS_INSTRUCTORS"),
		Notifications: v.GetBool("ENABLE_NOTIFICATIONS_TABLE"),
		AcademicYears: v.GetBool("ENABLE_ACADEMIC_YEARS"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:      v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:      v.GetInt("NOTIFICATIONS_WORKERS"),
		Retries:      v.GetInt("NOTIFICATIONS_RETRIES"),
		PingInterval: parseDuration(v.GetString("SSE_PING_INTERVAL"), 5*time.Second),
		MaxPings:     v.GetInt("SSE_MAX_PINGS"),
	}

	cfg.Gradebook = GradebookConfig{
		CacheEnabled: v.GetBool("GRADEBOOK_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("GRADEBOOK_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Calendar = CalendarConfig{EventLimit: v.GetInt("CALENDAR_EVENT_LIMIT")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gradsmart")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "gradsmart-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ATTACHMENTS_STORAGE_DIR", "./storage/submissions")
	v.SetDefault("ACADEMIC_YEARS_STORAGE_DIR", "./storage/academic-years")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_SECRET", "dev_attachments_secret")
	v.SetDefault("ATTACHMENTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("ATTACHMENTS_MAX_FILE_SIZE", 20*1024*1024)
	v.SetDefault("ATTACHMENTS_MAX_FILES", 10)

	v.SetDefault("IDENTITY_ALLOW_LEGACY", true)

	v.SetDefault("SCHEMA_PROBE", true)
	v.SetDefault("ENABLE_CLASSWORK", true)
	v.SetDefault("ENABLE_SUBMISSIONS", true)
	v.SetDefault("ENABLE_GRADEBOOK", true)
	v.SetDefault("ENABLE_CLASS_INSTRUCTORS", true)
	v.SetDefault("ENABLE_NOTIFICATIONS_TABLE", true)
	v.SetDefault("ENABLE_ACADEMIC_YEARS", true)

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_RETRIES", 3)
	v.SetDefault("SSE_PING_INTERVAL", "5s")
	v.SetDefault("SSE_MAX_PINGS", 120)

	v.SetDefault("GRADEBOOK_CACHE_ENABLED", false)
	v.SetDefault("GRADEBOOK_CACHE_TTL", "10m")

	v.SetDefault("CALENDAR_EVENT_LIMIT", 25)
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
