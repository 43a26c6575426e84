package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Redis     RedisConfig
	Fees      FeesConfig
	Trust     TrustConfig
	JWT       JWTConfig
	Integrity IntegrityConfig
}

// AppConfig holds environment and log settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DSN renders a lib/pq key=value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// LedgerConfig selects the ledger store.
type LedgerConfig struct {
	// Store is "postgres" or "memory".
	Store string
}

// RedisConfig holds the trust score cache connection.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port for the Redis client.
func (c RedisConfig) Addr() string { return c.Host + ":" + c.Port }

// FeesConfig holds the platform fee switches.
type FeesConfig struct {
	TrustBasedEnabled  bool
	FlatPercentage     float64
	TrustLookupTimeout time.Duration
}

// TrustConfig points at the governance service that scores instructors.
type TrustConfig struct {
	BaseURL     string
	APIKey      string
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
}

// JWTConfig holds the dashboard token secret.
type JWTConfig struct {
	SecretKey string
}

// IntegrityConfig schedules the background balance check.
type IntegrityConfig struct {
	Enabled  bool
	Schedule string
}

var envBindings = map[string]string{
	"app.env":                    "APP_ENV",
	"app.log_level":              "LOG_LEVEL",
	"server.port":                "PORT",
	"server.request_timeout":     "SERVER_REQUEST_TIMEOUT",
	"server.shutdown_timeout":    "SERVER_SHUTDOWN_TIMEOUT",
	"server.allowed_origins":     "SERVER_ALLOWED_ORIGINS",
	"database.host":              "DATABASE_HOST",
	"database.port":              "DATABASE_PORT",
	"database.user":              "DATABASE_USER",
	"database.password":          "DATABASE_PASSWORD",
	"database.name":              "DATABASE_NAME",
	"database.ssl_mode":          "DATABASE_SSL_MODE",
	"database.max_open_conns":    "DATABASE_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DATABASE_MAX_IDLE_CONNS",
	"database.conn_max_lifetime": "DATABASE_CONN_MAX_LIFETIME",
	"database.auto_migrate":      "DATABASE_AUTO_MIGRATE",
	"ledger.store":               "LEDGER_STORE",
	"redis.enabled":              "REDIS_ENABLED",
	"redis.host":                 "REDIS_HOST",
	"redis.port":                 "REDIS_PORT",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"fees.trust_based_enabled":   "FEES_TRUST_BASED_ENABLED",
	"fees.flat_percentage":       "FEES_FLAT_PERCENTAGE",
	"fees.trust_lookup_timeout":  "FEES_TRUST_LOOKUP_TIMEOUT",
	"trust.base_url":             "TRUST_BASE_URL",
	"trust.api_key":              "TRUST_API_KEY",
	"trust.cache_ttl":            "TRUST_CACHE_TTL",
	"trust.http_timeout":         "TRUST_HTTP_TIMEOUT",
	"jwt.secret_key":             "JWT_SECRET_KEY",
	"integrity.enabled":          "INTEGRITY_ENABLED",
	"integrity.schedule":         "INTEGRITY_SCHEDULE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", "*")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "dynasty_ledger")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("ledger.store", "postgres")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("fees.trust_based_enabled", true)
	v.SetDefault("fees.flat_percentage", 0.30)
	v.SetDefault("fees.trust_lookup_timeout", 2*time.Second)

	v.SetDefault("trust.base_url", "")
	v.SetDefault("trust.api_key", "")
	v.SetDefault("trust.cache_ttl", 5*time.Minute)
	v.SetDefault("trust.http_timeout", 2*time.Second)

	v.SetDefault("jwt.secret_key", "")

	v.SetDefault("integrity.enabled", true)
	v.SetDefault("integrity.schedule", "@every 15m")
}

// Load reads defaults, then the optional env file at path, then the process
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
		// A .env file uses the same names as the process environment.
		if val := v.GetString(strings.ToLower(env)); val != "" && os.Getenv(env) == "" {
			v.Set(key, val)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			LogLevel: v.GetString("app.log_level"),
		},
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  splitList(v.GetString("server.allowed_origins")),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Ledger: LedgerConfig{
			Store: strings.ToLower(v.GetString("ledger.store")),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Fees: FeesConfig{
			TrustBasedEnabled:  v.GetBool("fees.trust_based_enabled"),
			FlatPercentage:     v.GetFloat64("fees.flat_percentage"),
			TrustLookupTimeout: v.GetDuration("fees.trust_lookup_timeout"),
		},
		Trust: TrustConfig{
			BaseURL:     v.GetString("trust.base_url"),
			APIKey:      v.GetString("trust.api_key"),
			CacheTTL:    v.GetDuration("trust.cache_ttl"),
			HTTPTimeout: v.GetDuration("trust.http_timeout"),
		},
		JWT: JWTConfig{
			SecretKey: v.GetString("jwt.secret_key"),
		},
		Integrity: IntegrityConfig{
			Enabled:  v.GetBool("integrity.enabled"),
			Schedule: v.GetString("integrity.schedule"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that have no safe default.
func (c *Config) Validate() error {
	switch c.Ledger.Store {
	case "postgres", "memory":
	default:
		return fmt.Errorf("ledger.store must be postgres or memory, got %q", c.Ledger.Store)
	}
	if c.Fees.FlatPercentage <= 0 || c.Fees.FlatPercentage > 1 {
		return fmt.Errorf("fees.flat_percentage must be in (0, 1], got %v", c.Fees.FlatPercentage)
	}
	if c.Fees.TrustLookupTimeout <= 0 {
		return fmt.Errorf("fees.trust_lookup_timeout must be positive")
	}
	return nil
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
