// Package main is the entry point for the referral bot.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-referral-bot/internal/bot"
	"telegram-referral-bot/internal/config"
	"telegram-referral-bot/internal/gateway"
	"telegram-referral-bot/internal/pkg/db"
	"telegram-referral-bot/internal/repository"
	"telegram-referral-bot/internal/server"
	"telegram-referral-bot/internal/service"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Configure zerolog: console plus the append-only file backing ?logs=1
	setupLogging(cfg)
	log.Info().Str("version", version).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	investmentRepo := repository.NewInvestmentRepository(dbPool.Pool)
	statChannelRepo := repository.NewStatChannelRepository(dbPool.Pool)

	// Initialize the Telegram client and the retrying gateway
	policy := gateway.DefaultRetryPolicy()
	teleBot, err := bot.NewTelebot(cfg, policy)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram bot")
	}
	gw := gateway.New(teleBot, policy)

	// Initialize services
	accountService := service.NewAccountService(
		userRepo,
		txRepo,
		cfg.Bot.Username,
		cfg.Earn.Reward,
		cfg.Earn.Cooldown,
		cfg.Referral.Bonus,
	)
	adminService := service.NewAdminService(userRepo, txRepo, investmentRepo, cfg.Admin.ListLimit, cfg.Admin.TopN)
	gate := service.NewSubscriptionGate(gw, cfg.Bot.Channel)
	broadcaster := service.NewStatsBroadcaster(userRepo, statChannelRepo, gw, cfg.Stats.BroadcastInterval)

	// Wire the dispatcher
	refBot := bot.New(teleBot, &bot.Dependencies{
		Config:         cfg,
		Gateway:        gw,
		AccountService: accountService,
		AdminService:   adminService,
		Gate:           gate,
	})

	// Optionally register the webhook at boot
	if cfg.Webhook.RegisterOnStart && cfg.Webhook.BaseURL != "" {
		if err := gw.SetWebhook(cfg.Webhook.BaseURL); err != nil {
			log.Error().Err(err).Msg("Webhook registration failed, continuing without it")
		} else {
			log.Info().Str("url", cfg.Webhook.BaseURL).Msg("Webhook registered")
		}
	}

	broadcaster.Start(ctx)

	// Start the HTTP server
	httpServer := server.New(cfg, refBot, gw, version)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	log.Info().Msg("Bot stopped gracefully")
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writers := []io.Writer{console}

	if cfg.Log.File != "" {
		file, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.Log.File).Msg("Log file unavailable, console only")
		} else {
			writers = append(writers, file)
		}
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(writers...))
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
			referrals BIGINT NOT NULL DEFAULT 0 CHECK (referrals >= 0),
			ref_code VARCHAR(16) NOT NULL UNIQUE,
			referred_by BIGINT,
			blocked BOOLEAN NOT NULL DEFAULT FALSE,
			last_earn TIMESTAMPTZ,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC, referrals DESC);
		CREATE INDEX IF NOT EXISTS idx_users_joined ON users(joined_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	// Migration 3: Create investments table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS investments (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			plan_id BIGINT NOT NULL,
			amount BIGINT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			end_date TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active'
		);
		CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: investments table created")

	// Migration 4: Create stat_channels table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stat_channels (
			id BIGSERIAL PRIMARY KEY,
			channel_id BIGINT NOT NULL UNIQUE,
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: stat_channels table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
