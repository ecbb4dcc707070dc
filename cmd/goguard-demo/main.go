// Command goguard-demo serves a small site protected by goGuard pipelines.
// Stores are selected by the configuration file: Redis, PostgreSQL, JWT or
// in-memory.
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

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a goguard YAML config")
	debug := flag.Bool("debug", false, "log admitted requests")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := goGuard.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	builder := goGuard.NewBuilder().WithConfig(cfg).WithLogger(logger)
	if needsRedis(cfg) {
		rdb, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		builder.WithRedis(rdb)
	}

	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	engine, err := builder.BuildContext(buildCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	for _, w := range report.Warnings() {
		logger.Warn("security posture", "warning", w)
	}

	handler, err := routes(engine)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", cfg.Server.Addr,
			"session_store", cfg.Session.Store,
			"token_store", cfg.Token.Store,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// needsRedis reports whether any store or the rate-limit cache should live
// in Redis. An explicit GOGUARD_REDIS_ADDR opts the cache in even when both
// stores are in-memory.
func needsRedis(cfg goGuard.Config) bool {
	return cfg.Session.Store == "redis" || cfg.Token.Store == "redis" || os.Getenv("GOGUARD_REDIS_ADDR") != ""
}

func openRedis(ctx context.Context, cfg goGuard.RedisConfig) (redis.UniversalClient, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout+time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
