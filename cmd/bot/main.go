package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/moodkit/moodbot/cmd/bot/config"
	"github.com/moodkit/moodbot/internal/backend"
	"github.com/moodkit/moodbot/internal/bot"
	"github.com/moodkit/moodbot/internal/core/services"
	"github.com/moodkit/moodbot/internal/log"
	"github.com/moodkit/moodbot/internal/ops"
	"github.com/moodkit/moodbot/internal/platform/console"
	"github.com/moodkit/moodbot/internal/platform/slack"
	"github.com/moodkit/moodbot/internal/platform/telegram"
	"github.com/moodkit/moodbot/internal/ports"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the bot config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		// До настройки логгера slog пишет в stderr обработчиком по умолчанию.
		slog.Error("bot run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска бота.
func run(configPath string) error {
	// 1. Загрузка и валидация конфигурации
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load bot config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate bot config: %w", err)
	}

	// 2. Логгер с маскировкой токенов
	level, _ := log.ParseLevel(cfg.Logging.Level)
	// Консоль занимает stdout диалогом, поэтому логи уходят в stderr.
	logOut := os.Stdout
	if cfg.Bot.Platform == config.PlatformConsole {
		logOut = os.Stderr
	}
	logger := log.New(logOut, cfg.Logging.Format, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Платформа
	platform, err := newPlatform(cfg, logger)
	if err != nil {
		return err
	}
	if err := platform.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Bot.Platform, err)
	}

	// 4. Ядро
	client := backend.NewClient(cfg.Bot.BackendURL,
		backend.WithTimeout(cfg.HTTPTimeout()),
		backend.WithLogger(logger.With(slog.String("component", "backend"))),
	)
	resolver := services.NewUserResolver(client, platform,
		services.WithResolverLogger(logger.With(slog.String("component", "resolver"))),
	)
	coordinator := services.NewCoordinator(
		services.WithLimit(cfg.Bot.FanoutLimit),
		services.WithCoordinatorLogger(logger.With(slog.String("component", "fanout"))),
	)
	sender := bot.NewThrottledSender(platform, cfg.Bot.SendRatePerSecond, cfg.Bot.SendBurst)

	b := bot.New(platform.Self(), bot.Deps{
		Backend:   client,
		Resolver:  resolver,
		Directory: platform,
		Sender:    sender,
	},
		bot.WithLogger(logger.With(slog.String("component", "bot"))),
		bot.WithHistoryWindow(cfg.HistoryWindow()),
		bot.WithCoordinator(coordinator),
		bot.WithCodeBlocks(cfg.Bot.Platform == config.PlatformSlack),
	)

	// 5. Запуск и graceful shutdown
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return platform.Start(gctx) })
	g.Go(func() error {
		// Поток закрывается платформой; для консоли это означает конец ввода.
		if err := b.Run(gctx, platform.Messages()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		stop()
		return nil
	})
	if cfg.Ops.Enabled {
		srv := ops.New(cfg.Ops.Addr, bot.Version, cfg.Bot.Platform,
			ops.WithLogger(logger.With(slog.String("component", "ops"))),
		)
		g.Go(func() error { return srv.Run(gctx) })
	}

	slog.Info("Bot started", slog.String("platform", cfg.Bot.Platform), slog.String("version", bot.Version))
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Bot stopped gracefully")
	return nil
}

// newPlatform создает адаптер выбранной платформы.
func newPlatform(cfg *config.Config, logger *slog.Logger) (ports.Platform, error) {
	switch cfg.Bot.Platform {
	case config.PlatformSlack:
		return slack.New(cfg.Slack.BotToken, cfg.Slack.AppToken,
			slack.WithLogger(logger.With(slog.String("component", "slack"))),
			slack.WithAPIURL(cfg.Slack.APIURL),
			slack.WithDebug(cfg.Slack.Debug),
		), nil
	case config.PlatformTelegram:
		if err := tgbotapi.SetLogger(log.NewTGBotAPIAdapter(logger)); err != nil {
			return nil, fmt.Errorf("failed to set telegram logger: %w", err)
		}
		return telegram.New(cfg.Telegram.Token,
			telegram.WithLogger(logger.With(slog.String("component", "telegram"))),
			telegram.WithEndpoint(cfg.Telegram.Endpoint),
			telegram.WithPollTimeout(cfg.Telegram.PollTimeoutSeconds),
		), nil
	case config.PlatformConsole:
		return console.NewTerminal(
			console.WithLogger(logger.With(slog.String("component", "console"))),
			console.WithUser(cfg.Console.UserID, cfg.Console.Name, cfg.Console.Email),
		), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", cfg.Bot.Platform)
	}
}
