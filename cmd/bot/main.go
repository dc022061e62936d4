package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"namematch/internal/bot"
	"namematch/internal/catalog"
	"namematch/internal/config"
	"namematch/internal/engine"
	"namematch/internal/outbox"
	"namematch/internal/remote"
	"namematch/internal/scheduler"
	"namematch/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bot failed", "error", err)
		os.Exit(1)
	}
	log.Info("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()

	cat := catalog.NewLoader(http.DefaultClient, log).LoadAll(ctx, cfg.CatalogPaths)
	if cat.Len() == 0 {
		return fmt.Errorf("catalog is empty, check CATALOG_PATHS")
	}
	log.Info("catalog loaded", "names", cat.Len())

	rs, err := openRemote(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rs.Close() }()
	client := remote.NewClient(rs)

	ob := outbox.New(store)
	eng := engine.New(ctx, cat, store, ob, client, log)
	log.Info("engine ready", "user_id", eng.UserID(), "remote", cfg.RemoteBackend)

	drainer := outbox.NewDrainer(ob, client, cfg.OutboxRate, log)
	drainer.SetTickInterval(cfg.OutboxInterval)

	b, err := bot.New(cfg.TelegramBotToken, eng, cat, cfg, log)
	if err != nil {
		return err
	}

	sched := scheduler.New(eng, b, log)
	sched.SetTickInterval(cfg.SyncInterval)

	log.Info("starting bot")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		drainer.Run(ctx)
		return nil
	})
	g.Go(func() error {
		sched.Run(ctx)
		return nil
	})
	g.Go(func() error {
		b.Run(ctx)
		return nil
	})
	return g.Wait()
}

func openRemote(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.RemoteBackend {
	case config.BackendPostgres:
		pg, err := remote.NewPostgres(ctx, cfg.RemoteDSN)
		if err != nil {
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		return pg, nil
	case config.BackendRedis:
		rdb, err := remote.NewRedis(ctx, cfg.RemoteDSN)
		if err != nil {
			return nil, fmt.Errorf("open remote store: %w", err)
		}
		return rdb, nil
	default:
		return remote.Offline{}, nil
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
