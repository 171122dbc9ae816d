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

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/qs-lzh/eventpro/config"
	"github.com/qs-lzh/eventpro/internal/app"
	"github.com/qs-lzh/eventpro/internal/cache"
	"github.com/qs-lzh/eventpro/internal/database"
	"github.com/qs-lzh/eventpro/internal/handler"
	"github.com/qs-lzh/eventpro/internal/logger"
	"github.com/qs-lzh/eventpro/internal/mq"
	"github.com/qs-lzh/eventpro/internal/service/workflow"
	"github.com/qs-lzh/eventpro/internal/util"
)

const usage = `usage: eventpro [command]

commands:
  serve              run the HTTP API (default)
  finish-events      mark every ended event as FINISHED and exit
  migrate-passwords  hash legacy plaintext passwords and exit`

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	switch command {
	case "serve":
		err = serve(cfg, log)
	case "finish-events":
		err = finishEvents(cfg, log)
	case "migrate-passwords":
		err = migratePasswords(cfg, log)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", zap.String("command", command), zap.Error(err))
		os.Exit(1)
	}
}

// bootstrap connects the backing services. The broker is only dialled when
// withBroker is set and a URL is configured.
func bootstrap(cfg *config.Config, log *zap.Logger, withBroker bool) (*app.App, error) {
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	var redisCache *cache.RedisCache
	if cfg.CacheURL != "" {
		redisCache, err = cache.NewRedisCache(cfg.CacheURL, cfg.CachePassword, cfg.CacheTTL())
		if err != nil {
			return nil, err
		}
		if err := redisCache.Ping(); err != nil {
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
	}

	var mqConn *amqp.Connection
	if withBroker && cfg.MQURL != "" {
		mqConn, err = mq.NewMQConn(cfg.MQURL)
		if err != nil {
			return nil, fmt.Errorf("failed to reach rabbitmq: %w", err)
		}
	}

	return app.New(cfg, db, redisCache, mqConn, log, util.SystemClock()), nil
}

func serve(cfg *config.Config, log *zap.Logger) error {
	gin.SetMode(cfg.GinMode)

	a, err := bootstrap(cfg, log, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("error during cleanup", zap.Error(err))
		}
	}()
	if err := a.Init(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler.NewRouter(a),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func finishEvents(cfg *config.Config, log *zap.Logger) error {
	a, err := bootstrap(cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.EventWorkflow.FinishEvents()
	if errors.Is(err, workflow.ErrSweepRunning) {
		log.Info("another sweep holds the lock, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("events finished", zap.Int("count", n))
	return nil
}

func migratePasswords(cfg *config.Config, log *zap.Logger) error {
	a, err := bootstrap(cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.UserService.MigrateLegacyPasswords()
	if err != nil {
		return err
	}
	log.Info("legacy passwords migrated", zap.Int("count", n))
	return nil
}
