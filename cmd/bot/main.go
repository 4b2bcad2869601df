package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/bot"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/config"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/storage"
	"github.com/SuperClicheUsername/GW2WingmanPBBot/internal/webhook"
)

var configPath string

// rootCmd runs the bot when no subcommand is given
var rootCmd = &cobra.Command{
	Use:           "wingmanbot",
	Short:         "GW2 Wingman personal best and patch record Discord bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord bot and the webhook server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Optional YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(channelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration and sets up logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("Starting GW2 Wingman PB Bot")

	// Create context that cancels on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewRepository(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer repo.Close()

	// Create and start the bot
	b, err := bot.New(ctx, cfg, repo)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	server := webhook.NewServer(cfg.WebhookAddr, b.Pipeline(), repo.Ping)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Stop accepting webhooks before the session closes
		serr := server.Shutdown(shutdownCtx)
		berr := b.Stop()
		return errors.Join(serr, berr)
	})

	slog.Info("Bot is running. Press Ctrl+C to stop.")

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Bot stopped")
	return nil
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
