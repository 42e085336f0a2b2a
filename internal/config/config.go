// Package config loads service settings from the environment.
//
// A .env file in the working directory is read first if present; variables
// already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinJWTSecretLen is the shortest accepted HS256 signing secret, in bytes.
const MinJWTSecretLen = 32

// Config holds every setting the server reads.
type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8008"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	CacheMaxEntries          int           `env:"CACHE_MAX_ENTRIES" envDefault:"50"`
	CacheMaintenanceInterval time.Duration `env:"CACHE_MAINTENANCE_INTERVAL" envDefault:"3h"`
	CacheStalenessThreshold  time.Duration `env:"CACHE_STALENESS_THRESHOLD" envDefault:"1h"`

	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer   string        `env:"JWT_ISSUER" envDefault:"table-cache-api"`
	JWTAudience string        `env:"JWT_AUDIENCE" envDefault:"table-cache-clients"`
	JWTTTL      time.Duration `env:"JWT_TTL" envDefault:"24h"`

	AuthUsername     string `env:"AUTH_USERNAME" envDefault:"admin"`
	AuthPasswordHash string `env:"AUTH_PASSWORD_HASH"`
	AuthPassword     string `env:"AUTH_PASSWORD"`

	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"text"`
	GormLogLevel string `env:"GORM_LOG_LEVEL" envDefault:"silent"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch {
	case c.CacheMaxEntries <= 0:
		return errors.New("config: CACHE_MAX_ENTRIES must be positive")
	case c.CacheMaintenanceInterval <= 0:
		return errors.New("config: CACHE_MAINTENANCE_INTERVAL must be positive")
	case c.CacheStalenessThreshold <= 0:
		return errors.New("config: CACHE_STALENESS_THRESHOLD must be positive")
	case len(c.JWTSecret) < MinJWTSecretLen:
		return fmt.Errorf("config: JWT_SECRET must be at least %d bytes", MinJWTSecretLen)
	case c.AuthPasswordHash == "" && c.AuthPassword == "":
		return errors.New("config: one of AUTH_PASSWORD_HASH or AUTH_PASSWORD is required")
	}
	return nil
}
