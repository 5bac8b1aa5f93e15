package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"drawtrack/internal/app"
	"drawtrack/internal/config"
	"drawtrack/internal/ratelimit"
	"drawtrack/internal/server"
	"drawtrack/internal/util"
	"drawtrack/pkg/auth"
	"drawtrack/pkg/store"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "err", err)
		}
	}()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, tokenTTL)
	if err != nil {
		log.Fatalf("failed to init token manager: %v", err)
	}

	appCore := app.New(db, tokens)

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.LoginRateLimitPerMinute > 0 {
		limiter, err = ratelimit.New(cfg.RedisAddr, cfg.RedisPassword, cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:     appCore,
		Limiter: limiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("drawtrack server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return config.ConfigPath
}
