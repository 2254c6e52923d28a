package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/telegram"
	"recipe-planner/internal/web"
)

const telegramWebhookPath = "/telegram/webhook"

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Development: cfg.IsDevelopment()})
	defer zl.Sync()

	ctx := context.Background()

	// 2. Wire storage, generators and the application service
	rt, err := app.Bootstrap(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}
	defer rt.Close()

	if err := rt.App.Warm(ctx); err != nil {
		zl.Fatal("failed to load stored records", zap.Error(err))
	}

	// 3. HTTP server
	srv := web.NewServer(rt.App, cfg, rt.Collectors, nil, zl)

	// 4. Telegram Bot
	var bot *telegram.Bot
	if cfg.TelegramEnabled() {
		bot, err = telegram.NewBot(cfg, rt.App, telegram.NewSessionStore(rt.Store), zl)
		if err != nil {
			zl.Fatal("failed to initialize telegram bot", zap.Error(err))
		}
		srv.Handle(telegramWebhookPath, bot.WebhookHandler())
	}

	// 5. Start Server with Graceful Shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			zl.Error("server failed", zap.Error(err))
		}
	}
	zl.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if bot != nil {
		bot.Wait()
	}

	zl.Info("server exiting")
}
