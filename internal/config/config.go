// internal/config/config.go
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel            string   `mapstructure:"LOG_LEVEL"`
	ListenAddr          string   `mapstructure:"LISTEN_ADDR"`
	DBURL               string   `mapstructure:"DB_URL"`
	GithubWebhookSecret string   `mapstructure:"GITHUB_WEBHOOK_SECRET"`
	DeployHookURL       string   `mapstructure:"DEPLOY_HOOK_URL"`
	RelevantPathMarkers []string `mapstructure:"RELEVANT_PATH_MARKERS"`
	DiscordAPIURL       string   `mapstructure:"DISCORD_API_URL"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("RELEVANT_PATH_MARKERS", []string{"bot.js", "discord-bot"})
	viper.SetDefault("DISCORD_API_URL", "https://discord.com/api/v10")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if len(cfg.RelevantPathMarkers) == 0 {
		return nil, errors.New("RELEVANT_PATH_MARKERS must contain at least one marker")
	}

	return &cfg, nil
}
