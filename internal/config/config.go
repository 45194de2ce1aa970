// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Earn      EarnConfig      `mapstructure:"earn"`
	Referral  ReferralConfig  `mapstructure:"referral"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
	// Channel is the gate channel, e.g. "@mychannel" or a numeric ID.
	// Empty means the subscription gate is disabled.
	Channel string `mapstructure:"channel"`
}

// WebhookConfig holds the inbound HTTP server configuration.
type WebhookConfig struct {
	// BaseURL is the public HTTPS base the platform delivers updates to.
	BaseURL string `mapstructure:"base_url"`
	Listen  string `mapstructure:"listen"`
	// Secret is the bearer token guarding the management endpoints.
	Secret string `mapstructure:"secret"`
	// RegisterOnStart registers BaseURL as the webhook during boot.
	RegisterOnStart bool `mapstructure:"register_on_start"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin configuration.
type AdminConfig struct {
	ID        int64 `mapstructure:"id"`
	ListLimit int   `mapstructure:"list_limit"`
	TopN      int   `mapstructure:"top_n"`
}

// EarnConfig holds the earn action configuration.
type EarnConfig struct {
	Reward   int64         `mapstructure:"reward"`
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// ReferralConfig holds referral attribution configuration.
type ReferralConfig struct {
	// Bonus is credited to the inviter's balance once per onboarded invitee.
	Bonus int64 `mapstructure:"bonus"`
}

// StatsConfig holds the statistics broadcast configuration.
type StatsConfig struct {
	// BroadcastInterval of 0 disables the broadcaster.
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// File is the append-only log file backing the ?logs=1 dump.
	File string `mapstructure:"file"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// IsAdmin checks if a user ID is the configured admin.
func (c *Config) IsAdmin(userID int64) bool {
	return c.Admin.ID != 0 && c.Admin.ID == userID
}

// GateEnabled reports whether the subscription gate channel is configured.
func (c *Config) GateEnabled() bool {
	return c.Bot.Channel != ""
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separators and uppercase,
	// e.g. BOT_TOKEN, WEBHOOK_BASE_URL, DATABASE_HOST.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the required values that have no usable default.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot token is required")
	}
	if c.Admin.ID == 0 {
		return errors.New("admin id is required")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("webhook.listen", ":8080")
	v.SetDefault("webhook.register_on_start", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "refbot")
	v.SetDefault("database.name", "refbot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Earn defaults
	v.SetDefault("earn.reward", 1)
	v.SetDefault("earn.cooldown", "60s")

	// Referral defaults
	v.SetDefault("referral.bonus", 50)

	// Admin defaults
	v.SetDefault("admin.list_limit", 20)
	v.SetDefault("admin.top_n", 5)

	// Stats broadcast is off unless enabled explicitly
	v.SetDefault("stats.broadcast_interval", "0s")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "bot.log")
}
