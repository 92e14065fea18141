/*
Package main is the entry point for the BabelChat server.

It loads configuration, initializes logging, opens the database, wires the realtime hub
and the HTTP server, and shuts everything down gracefully on SIGINT or SIGTERM.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"babelchat/internal/app/chat"
	"babelchat/internal/app/db"
	"babelchat/internal/app/storage"
	"babelchat/internal/app/translate"
	"babelchat/internal/app/user"
	"babelchat/internal/configs"
	"babelchat/internal/handler"
	"babelchat/internal/pkg/logx"
	"babelchat/internal/pkg/textx"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("storage_enabled", cfg.StorageEnabled()).
		Dur("typing_ttl", cfg.TypingTTL).
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	users := db.NewUserRepo(pool)
	messages := db.NewMessageRepo(pool)

	if cfg.AdminUsername != "" {
		admin, created, err := user.EnsureAdmin(ctx, users, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			logx.Fatal(err, "Failed to seed admin account")
		}
		if created {
			logx.Info("Admin account created", "user_id", admin.ID, "username", admin.Username)
		} else if !admin.IsAdmin {
			logx.Warn("Seed admin username belongs to a regular account", "user_id", admin.ID)
		}
	}

	var store storage.StorageService
	if cfg.StorageEnabled() {
		store, err = storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize object storage")
		}
	}

	censor, err := textx.NewCensor(cfg.CensoredWords, '*')
	if err != nil {
		logx.Fatal(err, "Failed to build word censor")
	}

	hub := chat.NewHub(
		chat.WithTypingTTL(cfg.TypingTTL),
		chat.WithLastSeenRecorder(users),
	)
	go hub.Run()

	deps := &handler.AppDeps{
		Config:     cfg,
		Users:      users,
		Engine:     chat.NewEngine(hub, messages, textx.NewSanitizer(censor)),
		Auth:       chat.NewAuthenticator(users, cfg.JWTSecret),
		Storage:    store,
		Translator: translate.NewClient(cfg.TranslateAPIURL, cfg.TranslateTimeout),
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler.Router(deps),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("BabelChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by Shutdown; the hub closes them.
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	hub.Stop()

	logx.Info("Server gracefully stopped.")
}
