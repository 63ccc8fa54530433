package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once in main and handed to each component that needs it.
type Config struct {
	Server   Server
	Auth     Auth
	Postgres Postgres
	Redis    RedisConfig
	Mail     Mail
	Location *time.Location
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	APIPrefix      string
	LogFormat      string
	Env            string
	RequestTimeout time.Duration
}

// Auth holds token signing and the role/status constants the gate checks.
type Auth struct {
	JWTSecret             string
	JWTAlgorithm          string
	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	PasswordResetTTL      time.Duration
	AdminRoleID           int
	ReaderRoleID          int
	ActiveStatusID        int
	InactiveStatusID      int
	AdultDocumentTypeID   int
	MinorDocumentTypeID   int
	MinimumUserAgeInYears int
}

// Postgres configures the connection pool.
type Postgres struct {
	User            string
	Password        string
	Database        string
	Host            string
	Port            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// DSN renders a libpq-style connection URL.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// RedisConfig configures the optional Redis client. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Mail configures the SMTP relay used for password reset codes.
type Mail struct {
	Username string
	Password string
	From     string
	FromName string
	Server   string
	Port     int
}

// Enabled reports whether an SMTP server is configured.
func (m Mail) Enabled() bool {
	return m.Server != ""
}

const devJWTSecret = "dev-secret-key-change-in-production"

var supportedAlgorithms = map[string]bool{"HS256": true, "HS384": true, "HS512": true}

// FromEnv loads an optional .env file and builds a Config from the environment.
func FromEnv() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TZ_INFO", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TZ_INFO: %w", err)
	}

	cfg := Config{
		Server: Server{
			Addr:           getEnv("BIBLIOTECA_ADDR", ":8000"),
			APIPrefix:      getEnv("PREFIX_API_VERSION", "/api/v1"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			Env:            getEnv("APP_ENV", "dev"),
			RequestTimeout: time.Duration(getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Auth: Auth{
			JWTSecret:             getEnv("JWT_SECRET", ""),
			JWTAlgorithm:          strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
			AccessTokenTTL:        time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
			RefreshTokenTTL:       time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
			PasswordResetTTL:      time.Duration(getEnvInt("PASSWORD_RESET_TOKEN_EXPIRE_MINUTES", 10)) * time.Minute,
			AdminRoleID:           getEnvInt("ROL_ADMIN", 2),
			ReaderRoleID:          getEnvInt("ROL_LECTOR", 1),
			ActiveStatusID:        getEnvInt("ESTADO_ACTIVO", 1),
			InactiveStatusID:      getEnvInt("ESTADO_INACTIVO", 2),
			AdultDocumentTypeID:   getEnvInt("DOCUMENTO_MAYOR_EDAD_ID", 1),
			MinorDocumentTypeID:   getEnvInt("DOCUMENTO_MENOR_EDAD_ID", 2),
			MinimumUserAgeInYears: getEnvInt("EDAD_MINIMA_USUARIO", 9),
		},
		Postgres: Postgres{
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			Database:        getEnv("POSTGRES_DB", "biblioteca"),
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Hour,
			TxTimeout:       time.Duration(getEnvInt("POSTGRES_TX_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Mail: Mail{
			Username: getEnv("MAIL_USERNAME", ""),
			Password: getEnv("MAIL_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", ""),
			FromName: getEnv("MAIL_FROM_NAME", "BibliTech Support"),
			Server:   getEnv("MAIL_SERVER", ""),
			Port:     getEnvInt("MAIL_PORT", 587),
		},
		Location: loc,
	}

	if cfg.Auth.JWTSecret == "" && cfg.Server.Env == "dev" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the auth pipeline cannot run with.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if !supportedAlgorithms[c.Auth.JWTAlgorithm] {
		return fmt.Errorf("unsupported JWT_ALGORITHM %q", c.Auth.JWTAlgorithm)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Auth.ActiveStatusID == c.Auth.InactiveStatusID {
		return fmt.Errorf("ESTADO_ACTIVO and ESTADO_INACTIVO must differ")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
