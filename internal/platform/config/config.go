package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	OracleMemory    = "memory"
	OraclePostgres  = "postgres"
	OraclePostgREST = "postgrest"

	AuthDev    = "dev"
	AuthJWT    = "jwt"
	AuthGoTrue = "gotrue"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Server       ServerConfig
	Log          LogConfig
	Oracle       OracleConfig
	Auth         AuthConfig
	Capabilities CapabilitiesConfig
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
	App    string
}

// OracleConfig define contra qué backend se consultan los permisos.
type OracleConfig struct {
	Driver string

	DSN string // postgres

	PostgRESTURL    string // postgrest
	PostgRESTAPIKey string

	Timeout        time.Duration // por llamada
	MaxConcurrency int           // 0 = tamaño del catálogo
}

type AuthConfig struct {
	Mode string

	JWTSecret   string
	JWTAudience string

	GoTrueURL    string
	GoTrueAPIKey string
}

type CapabilitiesConfig struct {
	CacheTTL        time.Duration // 0 = sin cache
	CacheMaxEntries int
}

// findProjectRoot sube directorios hasta encontrar go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// newViper arma una instancia (no el singleton global) con defaults,
// el archivo .env.<env> opcional y las env vars con prioridad.
func newViper(env string) *viper.Viper {
	if strings.TrimSpace(env) == "" {
		env = "dev"
	}

	v := viper.New()
	v.SetConfigName(fmt.Sprintf(".env.%s", env))
	v.SetConfigType("env")
	if root, err := findProjectRoot(); err == nil {
		v.AddConfigPath(root)
	}
	_ = v.ReadInConfig() // el archivo es opcional

	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("READ_TIMEOUT", "5s")
	v.SetDefault("WRITE_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "tourify-capabilities")

	v.SetDefault("ORACLE_DRIVER", OracleMemory)
	v.SetDefault("ORACLE_TIMEOUT", "3s")
	v.SetDefault("RESOLVER_MAX_CONCURRENCY", 0)

	v.SetDefault("AUTH_MODE", AuthDev)

	v.SetDefault("CAPABILITIES_CACHE_TTL", "0s")
	v.SetDefault("CAPABILITIES_CACHE_MAX_ENTRIES", 10000)

	return v
}

// Load lee la config para env (dev, test, prod) y valida lo que cada driver necesita.
func Load(env string) (*Config, error) {
	v := newViper(env)

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetInt("PORT"),
			ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			App:    v.GetString("APP_NAME"),
		},
		Oracle: OracleConfig{
			Driver:          strings.ToLower(strings.TrimSpace(v.GetString("ORACLE_DRIVER"))),
			DSN:             strings.TrimSpace(v.GetString("DB_DSN")),
			PostgRESTURL:    strings.TrimSpace(v.GetString("POSTGREST_URL")),
			PostgRESTAPIKey: strings.TrimSpace(v.GetString("POSTGREST_API_KEY")),
			Timeout:         v.GetDuration("ORACLE_TIMEOUT"),
			MaxConcurrency:  v.GetInt("RESOLVER_MAX_CONCURRENCY"),
		},
		Auth: AuthConfig{
			Mode:         strings.ToLower(strings.TrimSpace(v.GetString("AUTH_MODE"))),
			JWTSecret:    v.GetString("JWT_SECRET"),
			JWTAudience:  strings.TrimSpace(v.GetString("JWT_AUDIENCE")),
			GoTrueURL:    strings.TrimSpace(v.GetString("GOTRUE_URL")),
			GoTrueAPIKey: strings.TrimSpace(v.GetString("GOTRUE_API_KEY")),
		},
		Capabilities: CapabilitiesConfig{
			CacheTTL:        v.GetDuration("CAPABILITIES_CACHE_TTL"),
			CacheMaxEntries: v.GetInt("CAPABILITIES_CACHE_MAX_ENTRIES"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: PORT out of range: %d", ErrInvalidConfig, c.Server.Port)
	}

	switch c.Oracle.Driver {
	case OracleMemory:
	case OraclePostgres:
		if c.Oracle.DSN == "" {
			return fmt.Errorf("%w: DB_DSN is required for ORACLE_DRIVER=postgres", ErrInvalidConfig)
		}
	case OraclePostgREST:
		if c.Oracle.PostgRESTURL == "" || c.Oracle.PostgRESTAPIKey == "" {
			return fmt.Errorf("%w: POSTGREST_URL and POSTGREST_API_KEY are required for ORACLE_DRIVER=postgrest", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ORACLE_DRIVER %q", ErrInvalidConfig, c.Oracle.Driver)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("%w: ORACLE_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.Oracle.MaxConcurrency < 0 {
		return fmt.Errorf("%w: RESOLVER_MAX_CONCURRENCY must be >= 0", ErrInvalidConfig)
	}

	switch c.Auth.Mode {
	case AuthDev:
	case AuthJWT:
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			return fmt.Errorf("%w: JWT_SECRET is required for AUTH_MODE=jwt", ErrInvalidConfig)
		}
	case AuthGoTrue:
		if c.Auth.GoTrueURL == "" || c.Auth.GoTrueAPIKey == "" {
			return fmt.Errorf("%w: GOTRUE_URL and GOTRUE_API_KEY are required for AUTH_MODE=gotrue", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown AUTH_MODE %q", ErrInvalidConfig, c.Auth.Mode)
	}

	if c.Capabilities.CacheTTL < 0 {
		return fmt.Errorf("%w: CAPABILITIES_CACHE_TTL must be >= 0", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
