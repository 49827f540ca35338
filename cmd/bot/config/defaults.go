package config

// Значения по умолчанию для конфигурации бота.
const (
	DefaultConfigFile         = "bot_config.yml"
	DefaultPlatform           = PlatformSlack
	DefaultHTTPTimeoutSeconds = 30
	DefaultHistoryWindowDays  = 7
	DefaultSendRatePerSecond  = 1.0
	DefaultSendBurst          = 3
	DefaultPollTimeoutSeconds = 60
	DefaultOpsAddr            = ":9090"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
)

// Поддерживаемые платформы.
const (
	PlatformSlack    = "slack"
	PlatformTelegram = "telegram"
	PlatformConsole  = "console"
)
