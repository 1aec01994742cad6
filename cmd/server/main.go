package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/go-classroom/internal/api"
	"github.com/npezzotti/go-classroom/internal/config"
	"github.com/npezzotti/go-classroom/internal/feed"
	"github.com/npezzotti/go-classroom/internal/notify"
	"github.com/npezzotti/go-classroom/internal/state"
	"github.com/npezzotti/go-classroom/internal/stats"
	"github.com/npezzotti/go-classroom/internal/storage"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

type closableStore interface {
	storage.Store
	io.Closer
}

var (
	addr               string
	storeBackend       string
	dsn                string
	redisAddr          string
	redisPassword      string
	sqlitePath         string
	storageKey         string
	notifySpacing      time.Duration
	messageNotifyDelay time.Duration
	seed               bool
	allowedOrigins     stringSliceFlag
)

func openStore(ctx context.Context, cfg *config.Config) (closableStore, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		return storage.NewPgStore(cfg.DatabaseDSN)
	case config.StoreRedis:
		return storage.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, "")
	case config.StoreSQLite:
		return storage.NewGormStore(cfg.SQLitePath)
	case config.StoreMemory:
		return storage.NewMemoryStore(), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&storeBackend, "store", config.StoreSQLite, "storage backend: memory, postgres, redis or sqlite")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "postgres connection string")
	flag.StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address")
	flag.StringVar(&redisPassword, "redis-password", "", "redis password")
	flag.StringVar(&sqlitePath, "sqlite-path", "classroom.db", "sqlite database file")
	flag.StringVar(&storageKey, "storage-key", state.DefaultStorageKey, "key the application state is stored under")
	flag.DurationVar(&notifySpacing, "notify-spacing", notify.DefaultSpacing, "spacing between simulated school notifications")
	flag.DurationVar(&messageNotifyDelay, "message-notify-delay", state.DefaultMessageNotifyDelay, "delay before a new message is announced")
	flag.BoolVar(&seed, "seed", true, "seed demo messages on first run")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-classroom] ", log.LstdFlags)

	cfg, err := config.NewConfig(config.Config{
		ServerAddr:         addr,
		StoreBackend:       storeBackend,
		DatabaseDSN:        dsn,
		RedisAddr:          redisAddr,
		RedisPassword:      redisPassword,
		SQLitePath:         sqlitePath,
		StorageKey:         storageKey,
		NotifySpacing:      notifySpacing,
		MessageNotifyDelay: messageNotifyDelay,
		SeedDemoMessages:   seed,
		AllowedOrigins:     allowedOrigins,
	})
	if err != nil {
		logger.Fatal("config:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store open:", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Println("store close:", err)
		}
	}()
	logger.Printf("using %s store", cfg.StoreBackend)

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()

	notifications := feed.NewFeed(logger, statsUpdater)
	go notifications.Run()

	notifier := notify.NewNotifier(logger, statsUpdater, notify.Options{
		Spacing: cfg.NotifySpacing,
		OnPrompt: func(title, body string) {
			logger.Printf("%s: %s", title, body)
		},
		OnNotify: notifications.Broadcast,
	})

	provider := state.NewProvider(logger, store, notifier, statsUpdater, state.Options{
		StorageKey:         cfg.StorageKey,
		SeedDemoMessages:   cfg.SeedDemoMessages,
		MessageNotifyDelay: cfg.MessageNotifyDelay,
	})
	provider.Start(ctx)

	srv := api.NewClassroomApp(mux, logger, provider, store, notifications, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Println("received shutdown signal")
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("saving application state...")
	if err := provider.Close(shutDownCtx); err != nil {
		logger.Println("provider close:", err)
	}

	if err := notifications.Shutdown(shutDownCtx); err != nil {
		logger.Println("feed shutdown:", err)
	}
	statsUpdater.Stop()

	logger.Println("shutdown complete")
}
