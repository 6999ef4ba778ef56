package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"growset/pkg/logger"
)

const (
	OrderAlphabetical = "alphabetical"
	OrderInsertion    = "insertion"
)

type Config struct {
	Directory string
	Username  string
	Password  string
	Realm     string
	Port      int
	Hostname  string

	IDBytes    int
	EntryOrder string

	Retention        time.Duration
	SweepSchedule    string
	SweepConcurrency int

	// Mail settings. Notifications are skipped unless all four are set.
	MailgunFrom    string
	MailgunDomain  string
	MailgunKey     string
	MailgunAPIBase string
	EmailTo        string

	DatabaseURL string

	// Submissions per minute per client. Zero disables throttling.
	RateLimit int
	// TrustProxy takes the client address from X-Forwarded-For and friends.
	// Only enable it behind a reverse proxy that sets those headers.
	TrustProxy bool

	LogLevel string
}

// Load reads the optional .env file and builds the configuration from the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Directory:      get("DIRECTORY", "growset"),
		Username:       get("USERNAME", "growset"),
		Password:       get("PASSWORD", "growset"),
		Realm:          get("REALM", "Grow Set"),
		Hostname:       get("HOSTNAME", "localhost"),
		EntryOrder:     strings.ToLower(get("ENTRY_ORDER", OrderAlphabetical)),
		SweepSchedule:  get("SWEEP_SCHEDULE", "0 * * * *"),
		MailgunFrom:    get("MAILGUN_FROM", ""),
		MailgunDomain:  get("MAILGUN_DOMAIN", ""),
		MailgunKey:     get("MAILGUN_KEY", ""),
		MailgunAPIBase: get("MAILGUN_API_BASE", ""),
		EmailTo:        get("EMAIL_TO", ""),
		DatabaseURL:    get("DATABASE_URL", ""),
		LogLevel:       get("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.Port, err = atoi("PORT", get("PORT", "8080")); err != nil {
		return Config{}, err
	}
	if cfg.IDBytes, err = atoi("ID_BYTES", get("ID_BYTES", "16")); err != nil {
		return Config{}, err
	}
	if cfg.SweepConcurrency, err = atoi("SWEEP_CONCURRENCY", get("SWEEP_CONCURRENCY", "3")); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit, err = atoi("RATE_LIMIT", get("RATE_LIMIT", "30")); err != nil {
		return Config{}, err
	}
	if cfg.TrustProxy, err = strconv.ParseBool(get("TRUST_PROXY", "false")); err != nil {
		return Config{}, fmt.Errorf("invalid TRUST_PROXY: %w", err)
	}
	if cfg.Retention, err = time.ParseDuration(get("RETENTION", "8760h")); err != nil {
		return Config{}, fmt.Errorf("invalid RETENTION: %w", err)
	}

	if cfg.IDBytes != 16 && cfg.IDBytes != 32 {
		return Config{}, fmt.Errorf("invalid ID_BYTES %d: must be 16 or 32", cfg.IDBytes)
	}
	if cfg.EntryOrder != OrderAlphabetical && cfg.EntryOrder != OrderInsertion {
		return Config{}, fmt.Errorf("invalid ENTRY_ORDER %q", cfg.EntryOrder)
	}
	if cfg.SweepConcurrency < 1 {
		return Config{}, fmt.Errorf("invalid SWEEP_CONCURRENCY %d", cfg.SweepConcurrency)
	}
	if cfg.Retention <= 0 {
		return Config{}, fmt.Errorf("invalid RETENTION %s", cfg.Retention)
	}
	if cfg.RateLimit < 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT %d", cfg.RateLimit)
	}
	return cfg, nil
}

// MailConfigured reports whether every mail setting is present.
func (c Config) MailConfigured() bool {
	return c.MailgunFrom != "" && c.MailgunDomain != "" && c.MailgunKey != "" && c.EmailTo != ""
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func atoi(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
