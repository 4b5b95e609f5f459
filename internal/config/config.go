package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Treasury struct {
		Admin           string `yaml:"admin" env:"TREASURY_ADMIN"`
		Governance      string `yaml:"governance" env:"TREASURY_GOVERNANCE"`
		StateFile       string `yaml:"state_file" env:"TREASURY_STATE_FILE"`
		Asset           string `yaml:"asset" env:"TREASURY_ASSET"`
		MinFirstDeposit string `yaml:"min_first_deposit" env:"TREASURY_MIN_FIRST_DEPOSIT"`
		// Genesis funds the in-process custody vault on first start.
		Genesis map[string]string `yaml:"genesis"`
	} `yaml:"treasury"`
	API struct {
		Listen        string  `yaml:"listen" env:"API_LISTEN"`
		JWTSecret     string  `yaml:"jwt_secret" env:"API_JWT_SECRET"`
		RatePerSecond float64 `yaml:"rate_per_second" env:"API_RATE_PER_SECOND"`
		Burst         int     `yaml:"burst" env:"API_BURST"`
	} `yaml:"api"`
	Telegram struct {
		BotToken   string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID     string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
		APIBaseURL string `yaml:"api_base_url" env:"TELEGRAM_API_BASE_URL"`
	} `yaml:"telegram"`
	Schedule struct {
		SnapshotCron string `yaml:"snapshot_cron" env:"CRON_SNAPSHOT"`
		DailyCron    string `yaml:"daily_cron" env:"CRON_DAILY"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	} `yaml:"database"`
	Reputation struct {
		File   string `yaml:"file" env:"REPUTATION_FILE"`
		URL    string `yaml:"url" env:"REPUTATION_URL"`
		APIKey string `yaml:"api_key" env:"REPUTATION_API_KEY"`
	} `yaml:"reputation"`
	Log struct {
		Level       string `yaml:"level" env:"LOG_LEVEL"`
		Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy" env:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then a .env file, then applies
// environment variable overrides and defaults. Missing files are fine.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Defaults
	if cfg.Treasury.StateFile == "" {
		cfg.Treasury.StateFile = "data/treasury_state.json"
	}
	if cfg.Treasury.Asset == "" {
		cfg.Treasury.Asset = "USDC"
	}
	if cfg.Treasury.MinFirstDeposit == "" {
		cfg.Treasury.MinFirstDeposit = "1"
	}
	if cfg.API.RatePerSecond == 0 {
		cfg.API.RatePerSecond = 20
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 40
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "0 0 * * * *"
	}
	if cfg.Schedule.DailyCron == "" {
		cfg.Schedule.DailyCron = "0 0 9 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/treasury.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	if c.Treasury.Admin == "" {
		return fmt.Errorf("treasury.admin is required")
	}
	if c.Treasury.Governance == "" {
		return fmt.Errorf("treasury.governance is required")
	}
	if _, err := c.MinFirstDeposit(); err != nil {
		return err
	}
	for who, amount := range c.Treasury.Genesis {
		d, err := decimal.NewFromString(amount)
		if err != nil || d.Sign() < 0 || !d.Equal(d.Truncate(0)) {
			return fmt.Errorf("treasury.genesis[%s] must be a non-negative whole amount", who)
		}
	}
	if c.API.Listen != "" {
		if len(c.API.JWTSecret) < 16 {
			return fmt.Errorf("api.jwt_secret must be at least 16 characters when api.listen is set")
		}
		if c.API.RatePerSecond <= 0 {
			return fmt.Errorf("api.rate_per_second must be positive")
		}
		if c.API.Burst < 1 {
			return fmt.Errorf("api.burst must be at least 1")
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// MinFirstDeposit parses treasury.min_first_deposit.
func (c *Config) MinFirstDeposit() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(c.Treasury.MinFirstDeposit)
	if err != nil || d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("treasury.min_first_deposit must be a positive amount")
	}
	return d, nil
}

// TelegramEnabled reports whether chat notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
