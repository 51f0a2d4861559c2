package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"machine-access-backend/config"
	"machine-access-backend/internal/api"
	"machine-access-backend/internal/bot"
	"machine-access-backend/internal/db"
	"machine-access-backend/internal/directory"
	"machine-access-backend/internal/engine"
	"machine-access-backend/internal/history"
	"machine-access-backend/internal/metrics"
	"machine-access-backend/internal/notification"
	"machine-access-backend/internal/registry"
	"machine-access-backend/internal/statestore"
)

func main() {
	logger := log.New(os.Stdout, "macd ", log.LstdFlags)
	startTime := time.Now().UTC()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Static configs: machine policies and the user roster.
	reg, err := registry.Load(cfg.Files.MachinesConfig)
	if err != nil {
		logger.Fatalf("failed to load machines config: %v", err)
	}
	dir, err := directory.Load(cfg.Files.UsersConfig)
	if err != nil {
		logger.Fatalf("failed to load users config: %v", err)
	}
	logger.Printf("loaded %d machines, %d users (%d fobs)",
		len(reg.Names()), dir.UserCount(), dir.FobCount())

	// Durable per-machine state.
	store, err := statestore.New(cfg.Files.StateDir)
	if err != nil {
		logger.Fatalf("failed to initialize state store: %v", err)
	}
	set, err := engine.NewSet(reg, dir, store)
	if err != nil {
		logger.Fatalf("failed to restore machine state: %v", err)
	}

	// Event history database.
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	hist := history.NewGormStore(gormDB)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Notification fan-out: Slack announcements plus staff push alerts.
	var slackSender notification.SlackSender
	if cfg.Slack.WebhookURL != "" {
		slackSender = &notification.WebhookSender{URL: cfg.Slack.WebhookURL}
	} else {
		logger.Println("slack.webhook_url not configured; announcements are log-only")
	}
	webpushOptions := &webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, hist, slackSender, webpushOptions)
	pool.Start(ctx)

	responder := bot.New(set, hist, pool)
	collector := metrics.NewCollector(set, dir, reg, startTime)

	handler := api.NewHandler(set, dir, reg, hist, pool, responder, webpushOptions, cfg.Slack.SigningSecret)
	router := api.NewRouter(handler, metrics.Handler(collector), api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
