package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maxgram/internal/cache"
	"maxgram/internal/config"
	"maxgram/internal/maxchat"
	"maxgram/internal/relay"
	"maxgram/internal/state"
	"maxgram/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "maxgram",
		Short: "maxgram: MAX to Telegram message relay",
		Long:  "maxgram forwards messages from monitored MAX chats to a Telegram chat, preserving media, forwards, replies and system events.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.maxgram/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configPathCmd())
	root.AddCommand(installDaemonCmd())
	root.AddCommand(uninstallDaemonCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the config and local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false, "err", err)
				return nil
			}
			logger.Info("config", "path", cfgPath, "loaded", true, "chats", len(cfg.Max.ChatIDs))

			store, err := state.Open(cfg.General.StatePath, logger)
			if err != nil {
				logger.Info("state", "path", cfg.General.StatePath, "opened", false, "err", err)
				return nil
			}
			defer store.Close()
			ctx := context.Background()
			logger.Info("state",
				"path", cfg.General.StatePath,
				"forwarding", store.ForwardingEnabled(ctx),
				"known_chats", len(store.ChatTitles(ctx)),
			)
			return nil
		},
	}
}

func configPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})
	return cmd
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the relay (MAX subscription + Telegram command loop)",
		RunE:  runRelay,
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = buildLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := state.Open(cfg.General.StatePath, logger)
	if err != nil {
		return fmt.Errorf("state store: %w", err)
	}
	defer store.Close()

	// One HTTP client for all bot calls; the timeout must cover the 30s
	// command long poll.
	botClient := &http.Client{Timeout: 35 * time.Second}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, botClient)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	maxClient := maxchat.New(maxchat.Config{
		URL:    cfg.Max.GatewayURL,
		Token:  cfg.Max.Token,
		Logger: logger,
	})

	sender := telegram.NewSender(telegram.SenderConfig{
		API:        bot,
		ChatID:     cfg.Telegram.ChatID,
		ThreadID:   cfg.Telegram.ThreadID,
		MaxToken:   cfg.Max.Token,
		VideoCache: cache.NewVideoURLCache(cache.DefaultVideoTTL),
		Logger:     logger,
	})

	names := relay.NewNameResolver(maxClient, cache.NewNameCache(cache.DefaultCapacity), logger)
	handler := relay.NewHandler(relay.HandlerConfig{
		ChatIDs:    cfg.Max.ChatIDs,
		Store:      store,
		Dedup:      cache.NewDedupSet(cache.DefaultCapacity),
		Normalizer: relay.NewNormalizer(names, logger),
		Sender:     sender,
		Logger:     logger,
	})
	maxClient.OnMessage(handler.HandleMessage)

	commands := telegram.NewCommandLoop(telegram.CommandLoopConfig{
		API:     bot,
		Store:   store,
		AdminID: cfg.Telegram.AdminID,
		Logger:  logger,
	})
	go commands.Run(ctx)

	monitor := newMonitor(bot, cfg.Telegram.MonitorChatID)
	monitor.notify("<b>Бот встал</b>")

	logger.Info("relay started", "chats", len(cfg.Max.ChatIDs), "version", version)
	err = maxClient.Run(ctx)
	if err != nil && ctx.Err() == nil {
		monitor.notify(fmt.Sprintf("Скрипт упал: %v", err))
		return fmt.Errorf("max client: %w", err)
	}

	logger.Info("relay stopped")
	return nil
}

// monitor posts lifecycle notices to an optional monitoring chat.
type monitor struct {
	api    telegram.API
	chatID int64
}

func newMonitor(api telegram.API, chatID int64) *monitor {
	return &monitor{api: api, chatID: chatID}
}

func (m *monitor) notify(text string) {
	if m.chatID == 0 {
		return
	}
	params := make(tgbotapi.Params)
	params.AddNonZero64("chat_id", m.chatID)
	params["text"] = text
	params["parse_mode"] = "HTML"
	if _, err := m.api.MakeRequest("sendMessage", params); err != nil {
		logger.Warn("monitor notification failed", "err", err)
	}
}

// buildLogger honors the configured level and optional log file.
func buildLogger(cfg config.GeneralConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.LogFile, "err", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
