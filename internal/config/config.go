package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	JWT       JWTConfig
	App       AppConfig
	SMTP      SMTPConfig
	Microsoft MicrosoftConfig
	Session   SessionConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Notifier  NotifierConfig
	Import    ImportConfig
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	BaseURL            string // used when building action links in notifications
	FrontendURL        string
	CORSAllowedOrigins []string
	OutboundTimeout    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLSMode  string // none, starttls, tls
	Timeout  time.Duration
}

type MicrosoftConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// Enabled reports whether Microsoft sign-in is configured.
func (m MicrosoftConfig) Enabled() bool {
	return m.ClientID != "" && m.ClientSecret != "" && m.RedirectURI != ""
}

type SessionConfig struct {
	Backend string // postgres or redis
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	BasePath string
	BaseURL  string
}

type NotifierConfig struct {
	Workers   int
	QueueSize int
}

type ImportConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}
	var err error

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hrms"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	outboundTimeout, err := time.ParseDuration(getEnv("OUTBOUND_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOUND_TIMEOUT: %w", err)
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BaseURL:            strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		FrontendURL:        strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
		OutboundTimeout:    outboundTimeout,
	}
	if len(config.App.CORSAllowedOrigins) == 0 {
		config.App.CORSAllowedOrigins = []string{config.App.FrontendURL}
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "8h"),
	}

	// SMTP configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	smtpTimeout, err := time.ParseDuration(getEnv("SMTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_TIMEOUT: %w", err)
	}
	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@localhost"),
		FromName: getEnv("SMTP_FROM_NAME", "HRMS"),
		TLSMode:  strings.ToLower(getEnv("SMTP_TLS_MODE", "starttls")),
		Timeout:  smtpTimeout,
	}

	// Microsoft identity platform
	config.Microsoft = MicrosoftConfig{
		TenantID:     getEnv("MS_TENANT_ID", "common"),
		ClientID:     getEnv("MS_CLIENT_ID", ""),
		ClientSecret: getEnv("MS_CLIENT_SECRET", ""),
		RedirectURI:  getEnv("MS_REDIRECT_URI", ""),
		Scopes:       getEnvSlice("MS_SCOPES"),
	}
	if len(config.Microsoft.Scopes) == 0 {
		config.Microsoft.Scopes = []string{"openid", "profile", "email", "User.Read"}
	}

	// Session store
	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "8h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	config.Session = SessionConfig{
		Backend: strings.ToLower(getEnv("SESSION_BACKEND", "postgres")),
		TTL:     sessionTTL,
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	config.Storage = StorageConfig{
		BasePath: getEnv("STORAGE_BASE_PATH", "./uploads"),
		BaseURL:  strings.TrimRight(getEnv("STORAGE_BASE_URL", "http://localhost:8080/uploads"), "/"),
	}

	workers, err := strconv.Atoi(getEnv("NOTIFIER_WORKERS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFIER_WORKERS: %w", err)
	}
	queueSize, err := strconv.Atoi(getEnv("NOTIFIER_QUEUE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFIER_QUEUE_SIZE: %w", err)
	}
	config.Notifier = NotifierConfig{Workers: workers, QueueSize: queueSize}

	importConcurrency, err := strconv.Atoi(getEnv("IMPORT_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMPORT_CONCURRENCY: %w", err)
	}
	config.Import = ImportConfig{Concurrency: importConcurrency}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" && c.Database.Password == "" {
		errs = append(errs, errors.New("DATABASE_URL or DB_PASSWORD is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	}
	if _, err := time.ParseDuration(c.JWT.AccessExpiration); err != nil {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_EXPIRATION_TIME is invalid: %w", err))
	}
	switch c.SMTP.TLSMode {
	case "none", "starttls", "tls":
	default:
		errs = append(errs, fmt.Errorf("SMTP_TLS_MODE must be one of none, starttls, tls (got %q)", c.SMTP.TLSMode))
	}
	switch c.Session.Backend {
	case "postgres", "redis":
	default:
		errs = append(errs, fmt.Errorf("SESSION_BACKEND must be postgres or redis (got %q)", c.Session.Backend))
	}
	if c.Notifier.Workers < 1 {
		errs = append(errs, errors.New("NOTIFIER_WORKERS must be at least 1"))
	}
	if c.Notifier.QueueSize < 1 {
		errs = append(errs, errors.New("NOTIFIER_QUEUE_SIZE must be at least 1"))
	}
	if c.Import.Concurrency < 1 {
		errs = append(errs, errors.New("IMPORT_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
