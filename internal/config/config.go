// Package config reads process settings from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables always win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLen = 32

var ErrWeakSecret = fmt.Errorf("JWT_SECRET must be at least %d chars", minSecretLen)

type Files struct {
	Products   string
	Users      string
	Carts      string
	Favorites  string
	Orders     string
	PromoCodes string
}

type Config struct {
	Addr         string
	Files        Files
	JWTSecret    string
	TokenTTL     time.Duration
	MetricsToken string
	LogLevel     string
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	dataDir := getenv("DATA_DIR", filepath.Join("data", "db"))

	cfg := Config{
		Addr: getenv("SERVER_ADDRESS", ":8080"),
		Files: Files{
			Products:   getenv("DATA_PRODUCTS_FILE_PATH", filepath.Join(dataDir, "products.json")),
			Users:      getenv("DATA_USERS_FILE_PATH", filepath.Join(dataDir, "users.json")),
			Carts:      getenv("DATA_CARTS_FILE_PATH", filepath.Join(dataDir, "carts.json")),
			Favorites:  getenv("DATA_FAVORITES_FILE_PATH", filepath.Join(dataDir, "favorites.json")),
			Orders:     getenv("DATA_ORDERS_FILE_PATH", filepath.Join(dataDir, "orders.json")),
			PromoCodes: getenv("DATA_PROMOCODES_FILE_PATH", filepath.Join(dataDir, "promocodes.json")),
		},
		JWTSecret:    os.Getenv("JWT_SECRET"),
		MetricsToken: os.Getenv("METRICS_TOKEN"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
	}

	ttl, err := time.ParseDuration(getenv("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL: invalid duration %q", os.Getenv("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	return cfg, nil
}

// RequireSecret fails unless a signing secret of sufficient length is set.
// Commands that never issue tokens skip it.
func (c Config) RequireSecret() error {
	if len(c.JWTSecret) < minSecretLen {
		return ErrWeakSecret
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
