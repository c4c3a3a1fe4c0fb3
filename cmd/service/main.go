// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/sussybocca/botforge-sync/internal/api"
	"github.com/sussybocca/botforge-sync/internal/auth"
	"github.com/sussybocca/botforge-sync/internal/config"
	"github.com/sussybocca/botforge-sync/internal/deploy"
	"github.com/sussybocca/botforge-sync/internal/discord"
	"github.com/sussybocca/botforge-sync/internal/github"
	"github.com/sussybocca/botforge-sync/internal/store"
	"github.com/sussybocca/botforge-sync/internal/syncer"
	"github.com/sussybocca/botforge-sync/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	db := store.NewPostgres(dbpool, logger)
	ghClient := github.NewClient(logger)
	discordClient := discord.NewClient(cfg.DiscordAPIURL, logger)

	var dispatcher deploy.Dispatcher
	if cfg.DeployHookURL != "" {
		dispatcher = deploy.NewWebhookDispatcher(cfg.DeployHookURL)
	} else {
		logger.Warn("No DEPLOY_HOOK_URL configured; deploy intents will only be logged")
		dispatcher = &deploy.LogDispatcher{Logger: logger}
	}
	trigger := deploy.NewTrigger(dispatcher, logger)

	filter := webhook.NewRelevanceFilter(cfg.RelevantPathMarkers)
	appSyncer := syncer.NewService(db, filter, trigger, logger)

	if cfg.GithubWebhookSecret == "" {
		logger.Warn("GITHUB_WEBHOOK_SECRET is not set; webhook signatures will not be verified")
	}

	router := api.NewRouter(db, appSyncer, ghClient, discordClient, auth.HeaderProvider{}, []byte(cfg.GithubWebhookSecret), logger)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Serve until shutdown signal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received. Draining connections.")
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		return server.Shutdown(sctx)
	})

	return g.Wait()
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
