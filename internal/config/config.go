package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBHost      string   `mapstructure:"DB_HOST"`
	DBName      string   `mapstructure:"DB_NAME"`
	DBUser      string   `mapstructure:"DB_USER"`
	DBPass      string   `mapstructure:"DB_PASS"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	SessionIdleTimeout int `mapstructure:"SESSION_IDLE_TIMEOUT"` // seconds
	CSRFTokenTTL       int `mapstructure:"CSRF_TOKEN_TTL"`       // seconds

	LogDir         string  `mapstructure:"LOG_DIR"`
	LogMaxSizeMB   int     `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups  int     `mapstructure:"LOG_MAX_BACKUPS"`
	CacheBackend   string  `mapstructure:"CACHE_BACKEND"` // "memory" or "file"
	CacheDir       string  `mapstructure:"CACHE_DIR"`
	ExportDir      string  `mapstructure:"EXPORT_DIR"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
	TLSEnabled     bool    `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string  `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string  `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults keep a local Postgres workable with no environment at all.
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_NAME", "saas_medic")
	v.SetDefault("DB_USER", "saas_medic")
	v.SetDefault("DB_PASS", "saas_medic")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_IDLE_TIMEOUT", 1800)
	v.SetDefault("CSRF_TOKEN_TTL", 3600)
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("CACHE_DIR", "./cache")
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_HOST", "DB_NAME", "DB_USER", "DB_PASS",
		"DB_MAX_CONNS", "DB_MIN_CONNS", "CORS_ORIGINS",
		"SESSION_IDLE_TIMEOUT", "CSRF_TOKEN_TTL",
		"LOG_DIR", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
		"CACHE_BACKEND", "CACHE_DIR", "EXPORT_DIR",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedDatabaseURL returns DATABASE_URL when set, otherwise a URL
// assembled from the discrete DB_HOST/DB_NAME/DB_USER/DB_PASS settings.
func (c *Config) ResolvedDatabaseURL() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPass), c.DBHost, c.DBName)
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %d", c.SessionIdleTimeout)
	}
	if c.CSRFTokenTTL <= 0 {
		return fmt.Errorf("CSRF_TOKEN_TTL must be positive, got %d", c.CSRFTokenTTL)
	}
	if c.CacheBackend != "memory" && c.CacheBackend != "file" {
		return fmt.Errorf("CACHE_BACKEND must be \"memory\" or \"file\", got %q", c.CacheBackend)
	}
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}
	return nil
}
