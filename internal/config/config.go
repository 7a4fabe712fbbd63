// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds the core runtime configuration.  Required values are
// enforced by must(); the remaining fields have defaults.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	StorageDriver  string // mysql or memory
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	WelcomeTokens  int64  // tokens credited to newly registered players
	LogLevel       string // logrus level name
	LogFormat      string // "json" or "text"

	BootstrapOperatorEmail    string // optional OPERATOR account ensured at startup
	BootstrapOperatorPassword string // its password; only read when the email is set
}

// Load reads the configuration.  Missing required variables terminate the
// process.  With STORAGE_DRIVER=memory the DB_* variables are optional.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		StorageDriver:  envStr("STORAGE_DRIVER", StorageMySQL),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		WelcomeTokens:  int64(envInt("WELCOME_TOKENS", 100)),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", ""),
	}
	switch cfg.StorageDriver {
	case StorageMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StorageMemory:
	default:
		logrus.Fatalf("invalid STORAGE_DRIVER %q (want %s or %s)", cfg.StorageDriver, StorageMySQL, StorageMemory)
	}
	if cfg.BootstrapOperatorEmail = envStr("BOOTSTRAP_OPERATOR_EMAIL", ""); cfg.BootstrapOperatorEmail != "" {
		cfg.BootstrapOperatorPassword = must("BOOTSTRAP_OPERATOR_PASSWORD")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.Env == "prod" {
			cfg.LogFormat = "json"
		}
	}
	return cfg
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
