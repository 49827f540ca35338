// Package config загружает конфигурацию бота из YAML, .env и окружения.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	mlog "github.com/moodkit/moodbot/internal/log"
)

// BotConfig содержит общие настройки бота.
type BotConfig struct {
	Platform           string  `yaml:"platform"`
	BackendURL         string  `yaml:"backend_url"`
	HTTPTimeoutSeconds int     `yaml:"http_timeout_seconds"`
	HistoryWindowDays  int     `yaml:"history_window_days"`
	FanoutLimit        int     `yaml:"fanout_limit"` // 0 - без ограничений
	SendRatePerSecond  float64 `yaml:"send_rate_per_second"`
	SendBurst          int     `yaml:"send_burst"`
}

// SlackConfig содержит токены Slack-приложения.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
	APIURL   string `yaml:"api_url"`
	Debug    bool   `yaml:"debug"`
}

// TelegramConfig содержит настройки Telegram Bot API.
type TelegramConfig struct {
	Token              string `yaml:"token"`
	Endpoint           string `yaml:"endpoint"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
}

// ConsoleConfig описывает участника, от имени которого вводятся команды.
type ConsoleConfig struct {
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
}

// OpsConfig содержит настройки служебного HTTP-сервера.
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig содержит настройки логирования.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Slack    SlackConfig    `yaml:"slack"`
	Telegram TelegramConfig `yaml:"telegram"`
	Console  ConsoleConfig  `yaml:"console"`
	Ops      OpsConfig      `yaml:"ops"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load загружает конфигурацию из файла, затем применяет .env и переменные
// окружения. Отсутствующий файл не ошибка: бот можно настроить только окружением.
func Load(filename string) (*Config, error) {
	// .env необязателен.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Bot.BackendURL = getEnv("HOST", c.Bot.BackendURL)
	c.Bot.Platform = getEnv("BOT_PLATFORM", c.Bot.Platform)
	c.Slack.BotToken = getEnv("SLACK_BOT_TOKEN", c.Slack.BotToken)
	c.Slack.AppToken = getEnv("SLACK_APP_TOKEN", c.Slack.AppToken)
	c.Telegram.Token = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
}

func (c *Config) applyDefaults() {
	if c.Bot.Platform == "" {
		c.Bot.Platform = DefaultPlatform
	}
	c.Bot.Platform = strings.ToLower(c.Bot.Platform)
	if c.Bot.HTTPTimeoutSeconds == 0 {
		c.Bot.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if c.Bot.HistoryWindowDays == 0 {
		c.Bot.HistoryWindowDays = DefaultHistoryWindowDays
	}
	if c.Bot.SendRatePerSecond == 0 {
		c.Bot.SendRatePerSecond = DefaultSendRatePerSecond
	}
	if c.Bot.SendBurst == 0 {
		c.Bot.SendBurst = DefaultSendBurst
	}
	if c.Telegram.PollTimeoutSeconds == 0 {
		c.Telegram.PollTimeoutSeconds = DefaultPollTimeoutSeconds
	}
	if c.Ops.Addr == "" {
		c.Ops.Addr = DefaultOpsAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate проверяет корректность конфигурации для выбранной платформы.
func (c *Config) Validate() error {
	if c.Bot.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty (or set HOST)")
	}
	if c.Bot.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("bot.http_timeout_seconds must not be negative")
	}
	if c.Bot.HistoryWindowDays < 0 {
		return fmt.Errorf("bot.history_window_days must not be negative")
	}
	if c.Bot.FanoutLimit < 0 {
		return fmt.Errorf("bot.fanout_limit must not be negative")
	}
	if c.Bot.SendBurst < 0 {
		return fmt.Errorf("bot.send_burst must not be negative")
	}

	switch c.Bot.Platform {
	case PlatformSlack:
		if !strings.HasPrefix(c.Slack.BotToken, "xoxb-") {
			return fmt.Errorf("slack.bot_token is not configured")
		}
		if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
			return fmt.Errorf("slack.app_token is not configured")
		}
	case PlatformTelegram:
		if c.Telegram.Token == "" || c.Telegram.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
			return fmt.Errorf("telegram.token is not configured")
		}
	case PlatformConsole:
	default:
		return fmt.Errorf("unknown bot.platform %q", c.Bot.Platform)
	}

	if _, err := mlog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// HTTPTimeout возвращает таймаут запросов к бэкенду.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Bot.HTTPTimeoutSeconds) * time.Second
}

// HistoryWindow возвращает окно истории и средних.
func (c *Config) HistoryWindow() time.Duration {
	return time.Duration(c.Bot.HistoryWindowDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
