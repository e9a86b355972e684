package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/jmhart/gitdesk/internal/adapter/driven/github"
	llmadapter "github.com/jmhart/gitdesk/internal/adapter/driven/llm"
	sqliteadapter "github.com/jmhart/gitdesk/internal/adapter/driven/sqlite"
	httphandler "github.com/jmhart/gitdesk/internal/adapter/driving/http"
	"github.com/jmhart/gitdesk/internal/application"
	"github.com/jmhart/gitdesk/internal/config"
	"github.com/jmhart/gitdesk/internal/cryptox"
	"github.com/jmhart/gitdesk/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on a missing session secret).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"user_id", cfg.UserID,
		"http_timeout", cfg.HTTPTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Derive the credential encryption key from the session secret.
	box, err := cryptox.NewBox(cfg.SessionSecret)
	if err != nil {
		return err
	}

	// 6. Wire stores and services.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	repoCacheStore := sqliteadapter.NewRepoCacheRepo(db)

	credSvc := application.NewCredentialService(credentialStore, box, slog.Default())

	ghFactory := func(token string) driven.GitHubClient {
		return githubadapter.NewClient(token)
	}
	ghSvc := application.NewGitHubService(credSvc, ghFactory, repoCacheStore, cfg.HTTPTimeout, slog.Default())

	llmFactory := func(apiKey, baseURL string) driven.LLMClient {
		return llmadapter.NewClient(apiKey, baseURL)
	}
	aiSvc := application.NewAIService(credSvc, llmFactory, cfg.HTTPTimeout, slog.Default())

	// 7. Create HTTP handler and register routes.
	apiHandler := httphandler.NewHandler(credSvc, ghSvc, aiSvc, cfg.UserID, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("gitdesk started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
