package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinematch/cinematch/internal/config"
	"github.com/cinematch/cinematch/internal/recommend"
	"github.com/cinematch/cinematch/internal/server/auth"
	"github.com/cinematch/cinematch/internal/server/handlers"
	"github.com/cinematch/cinematch/internal/server/middleware"
	"github.com/cinematch/cinematch/internal/server/password"
	"github.com/cinematch/cinematch/internal/server/router"
	"github.com/cinematch/cinematch/internal/server/storage/sqlite"
	"github.com/cinematch/cinematch/internal/server/token"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	codec := token.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	verifier := password.NewVerifier()

	// SameSite=None нужен браузерным клиентам на другом origin и
	// требует Secure; в development cookie ходит по http с Lax
	cookie := auth.CookieConfig{
		Name:     config.CookieName,
		Path:     config.CookiePath,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cfg.RefreshTokenTTL(),
	}
	if cfg.IsProduction() {
		cookie.SameSite = http.SameSiteNoneMode
	}

	authService := auth.NewService(logger, store, codec, verifier, cookie)
	index := recommend.NewIndex(cfg.SimilarityPath)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow(), logger)
	defer rateLimiter.Stop()

	handler := router.New(router.Deps{
		Logger:      logger,
		Auth:        handlers.NewAuthHandler(logger, authService, config.CookieName),
		Movies:      handlers.NewMovieHandler(logger, store, index),
		Users:       handlers.NewUserHandler(logger, store),
		Health:      handlers.NewHealthHandler(logger, Version),
		Guard:       middleware.AuthGuard(logger, codec, store),
		RateLimiter: rateLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.ListenAddr),
			slog.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func printVersion() {
	fmt.Printf("CineMatch Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
