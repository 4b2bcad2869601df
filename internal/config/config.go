package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken         string `mapstructure:"discord_bot_token"`
	DiscordApplicationID string `mapstructure:"discord_application_id"`
	BotOwnerID           string `mapstructure:"bot_owner_id"`

	// Relay channels
	ReportedLogChannelID string `mapstructure:"reported_log_channel_id"`
	InternalChannelID    string `mapstructure:"internal_channel_id"`
	DebugChannelID       string `mapstructure:"debug_channel_id"`

	// gw2wingman API
	WingmanBaseURL    string        `mapstructure:"wingman_base_url"`
	WingmanTimeout    time.Duration `mapstructure:"wingman_timeout"`
	WingmanRatePerSec int           `mapstructure:"wingman_rate_per_sec"`

	// Database
	DatabasePath string `mapstructure:"database_path"`

	// Webhook
	WebhookAddr string `mapstructure:"webhook_addr"`

	// Catalog and patch list refresh, cron syntax
	RefreshSchedule string `mapstructure:"refresh_schedule"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from an optional YAML file, a .env file and the
// environment. Environment variables win.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	v.SetDefault("discord_bot_token", "")
	v.SetDefault("discord_application_id", "")
	v.SetDefault("bot_owner_id", "")
	v.SetDefault("reported_log_channel_id", "852681966444740620")
	v.SetDefault("internal_channel_id", "1208602365972717628")
	v.SetDefault("debug_channel_id", "")
	v.SetDefault("wingman_base_url", "https://gw2wingman.nevermindcreations.de")
	v.SetDefault("wingman_timeout", "10s")
	v.SetDefault("wingman_rate_per_sec", 5)
	v.SetDefault("database_path", "./data/bot.db")
	v.SetDefault("webhook_addr", ":5000")
	v.SetDefault("refresh_schedule", "@every 6h")
	v.SetDefault("log_level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if c.WingmanTimeout <= 0 {
		return fmt.Errorf("WINGMAN_TIMEOUT must be positive, got %s", c.WingmanTimeout)
	}
	if c.WingmanRatePerSec <= 0 {
		return fmt.Errorf("WINGMAN_RATE_PER_SEC must be positive, got %d", c.WingmanRatePerSec)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}
