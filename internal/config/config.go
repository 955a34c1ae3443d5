package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envSecretKey        = "AUTHGATE_SECRET_KEY"
	envAlgorithm        = "AUTHGATE_ALGORITHM"
	envAccessTTLMinutes = "AUTHGATE_ACCESS_TOKEN_TTL_MINUTES"
	envRefreshTTLDays   = "AUTHGATE_REFRESH_TOKEN_TTL_DAYS"
	envPostgresDSN      = "AUTHGATE_PG_DSN"
	envListenAddr       = "AUTHGATE_ADDR"

	defaultAlgorithm        = "HS256"
	defaultAccessTTLMinutes = 15
	defaultRefreshTTLDays   = 7
	defaultListenAddr       = ":8080"
)

// Config holds process configuration. It is loaded once at startup and
// immutable afterwards.
type Config struct {
	SecretKey   string
	Algorithm   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	PostgresDSN string
	ListenAddr  string
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		SecretKey:   strings.TrimSpace(os.Getenv(envSecretKey)),
		Algorithm:   strings.TrimSpace(os.Getenv(envAlgorithm)),
		PostgresDSN: strings.TrimSpace(os.Getenv(envPostgresDSN)),
		ListenAddr:  strings.TrimSpace(os.Getenv(envListenAddr)),
	}
	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("%s is required", envSecretKey)
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = defaultAlgorithm
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}

	accessMinutes, err := positiveInt(envAccessTTLMinutes, defaultAccessTTLMinutes)
	if err != nil {
		return Config{}, err
	}
	refreshDays, err := positiveInt(envRefreshTTLDays, defaultRefreshTTLDays)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessTTL = time.Duration(accessMinutes) * time.Minute
	cfg.RefreshTTL = time.Duration(refreshDays) * 24 * time.Hour
	return cfg, nil
}

func positiveInt(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	if val <= 0 {
		return 0, errors.New(name + " must be greater than zero")
	}
	return val, nil
}
