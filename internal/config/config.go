package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "HolderGate"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultChallengeTTL     = 10 * time.Minute
	defaultLedgerTimeout    = 15 * time.Second
	defaultDirectoryTimeout = 10 * time.Second
	defaultSweepInterval    = 24 * time.Hour
	defaultSweepConcurrency = 4
	defaultRulesFile        = "rules.yaml"
	defaultStatement        = "HolderGate Verification"
	defaultMessageVersion   = "1"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration

	// External collaborators.
	DiscordToken   string
	DiscordGuildID string
	EthRPCURL      string

	// Sign-in message fields. ChainID stays a string because the signed
	// message carries it as text and it must match byte-for-byte.
	SignInDomain    string
	SignInURI       string
	SignInStatement string
	ChainID         string
	ChallengeTTL    time.Duration

	// Collaborator call budgets.
	LedgerTimeout    time.Duration
	DirectoryTimeout time.Duration

	// Synchronizer.
	SweepInterval    time.Duration
	SweepConcurrency int
	SyncOnStartup    bool

	AdminToken string
	RulesFile  string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		DiscordToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordGuildID:   os.Getenv("DISCORD_GUILD_ID"),
		EthRPCURL:        os.Getenv("ETH_RPC_URL"),
		SignInDomain:     os.Getenv("SIGNIN_DOMAIN"),
		SignInURI:        os.Getenv("SIGNIN_URI"),
		SignInStatement:  getEnv("SIGNIN_STATEMENT", defaultStatement),
		ChainID:          getEnv("CHAIN_ID", "1"),
		ChallengeTTL:     defaultChallengeTTL,
		LedgerTimeout:    defaultLedgerTimeout,
		DirectoryTimeout: defaultDirectoryTimeout,
		SweepInterval:    defaultSweepInterval,
		SweepConcurrency: defaultSweepConcurrency,
		AdminToken:       os.Getenv("ADMIN_TOKEN"),
		RulesFile:        getEnv("RULES_FILE", defaultRulesFile),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.ChallengeTTL, err = durationEnv("CHALLENGE_TTL", cfg.ChallengeTTL); err != nil {
		return Config{}, err
	}
	if cfg.LedgerTimeout, err = durationEnv("LEDGER_TIMEOUT", cfg.LedgerTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DirectoryTimeout, err = durationEnv("DIRECTORY_TIMEOUT", cfg.DirectoryTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationEnv("SYNC_INTERVAL", cfg.SweepInterval); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SYNC_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid SYNC_CONCURRENCY: %q", v)
		}
		cfg.SweepConcurrency = n
	}

	if v := os.Getenv("SYNC_ON_STARTUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SYNC_ON_STARTUP: %w", err)
		}
		cfg.SyncOnStartup = b
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.DiscordToken == "" {
		return Config{}, fmt.Errorf("DISCORD_BOT_TOKEN must be set")
	}
	if cfg.DiscordGuildID == "" {
		return Config{}, fmt.Errorf("DISCORD_GUILD_ID must be set")
	}
	if cfg.EthRPCURL == "" {
		return Config{}, fmt.Errorf("ETH_RPC_URL must be set")
	}
	if cfg.SignInDomain == "" {
		return Config{}, fmt.Errorf("SIGNIN_DOMAIN must be set")
	}
	if cfg.SignInURI == "" {
		return Config{}, fmt.Errorf("SIGNIN_URI must be set")
	}

	// A challenge without a lifetime is a defect, not an infinite nonce.
	if cfg.ChallengeTTL <= 0 {
		return Config{}, fmt.Errorf("CHALLENGE_TTL must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("SYNC_INTERVAL must be positive")
	}

	return cfg, nil
}

// MessageVersion is the fixed version field of the canonical sign-in message.
func (c Config) MessageVersion() string {
	return defaultMessageVersion
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
