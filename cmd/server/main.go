package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/aniversariantes/api/internal/config"
	"github.com/aniversariantes/api/internal/metrics"
	"github.com/aniversariantes/api/internal/notify"
	"github.com/aniversariantes/api/internal/scheduler"
	"github.com/aniversariantes/api/internal/server"
	"github.com/aniversariantes/api/internal/storage"
	"github.com/aniversariantes/api/internal/storage/badgerdb"
	"github.com/aniversariantes/api/internal/storage/memory"
	"github.com/aniversariantes/api/internal/storage/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	loadLocalEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("init store")
	}
	defer closeStore()

	m := metrics.New()
	notifier := notify.NewDiscordNotifier(notify.DiscordConfig{
		WebhookURL: cfg.WebhookURL,
		MaxRetries: cfg.NotifyMaxRetries,
	}, &logger)
	announcer := notify.NewAnnouncer(store, notifier, m, &logger)

	schedCfg := scheduler.DefaultConfig()
	schedCfg.NotifyHour = cfg.NotifyHour
	sched := scheduler.New(store, announcer, &logger, schedCfg)
	if err := sched.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}

	srv := server.New(cfg, store, announcer, m, &logger)

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPAddress()).
			Str("store_driver", cfg.StoreDriver).
			Msg("aniversariantes API listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := sched.Stop(); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown error")
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.BirthdayStore, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := postgres.NewBirthdayStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.DriverBadger:
		store, err := badgerdb.NewBirthdayStore(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.DriverMemory:
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %q", cfg.StoreDriver)
	}
}

func loadLocalEnv(logger zerolog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found; relying on existing environment")
	}
}
