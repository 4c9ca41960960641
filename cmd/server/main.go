// Package main is the entry point for the console rental server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/console-zone/rental/internal/allocation"
	"github.com/console-zone/rental/internal/api"
	"github.com/console-zone/rental/internal/booking"
	"github.com/console-zone/rental/internal/config"
	"github.com/console-zone/rental/internal/eligibility"
	"github.com/console-zone/rental/internal/events"
	"github.com/console-zone/rental/internal/logger"
	"github.com/console-zone/rental/internal/reconcile"
	"github.com/console-zone/rental/internal/storage"
	"github.com/console-zone/rental/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	cfg := config.Load()

	// Flags override the environment
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP server address")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory for SQLite database")
	storeMode := flag.String("store", string(cfg.StoreMode), "Store mode: remote or memory")
	flag.BoolVar(&cfg.SeedDemo, "seed", cfg.SeedDemo, "Load the demo catalog into an empty store")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()
	cfg.StoreMode = storage.Mode(*storeMode)

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	log, err := logger.New(cfg.Development())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	log.Info("starting console rental server",
		zap.String("version", version),
		zap.String("env", cfg.Env),
		zap.String("store", string(cfg.StoreMode)),
	)
	for _, w := range cfg.Warnings {
		log.Warn("config", zap.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.SeedDemo {
		if err := storage.Seed(ctx, store); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
		log.Info("demo catalog loaded")
	}

	directory, closeDirectory, err := buildDirectory(cfg, store, log)
	if err != nil {
		return err
	}
	defer closeDirectory()

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	broadcaster := websocket.NewEventBroadcaster(hub)

	notifier := events.Multi{broadcaster}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		notifier = append(notifier, publisher)
		log.Info("kafka publishing enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	resolver := allocation.NewResolver(store)
	orchestrator := booking.NewOrchestrator(
		store,
		eligibility.NewValidator(directory),
		resolver,
		allocation.NewWriter(store),
		notifier,
		booking.Config{MaxAttempts: cfg.MaxCommitAttempts, Timeout: cfg.BookingTimeout},
		log.Named("booking"),
	)

	scheduler := reconcile.NewScheduler(
		reconcile.NewReconciler(store, notifier, log.Named("reconcile")),
		cfg.ReconcileSchedule,
		log.Named("reconcile"),
	)

	router := api.NewRouter(api.Services{
		Store:       store,
		Booker:      orchestrator,
		Resolver:    resolver,
		Hub:         hub,
		Broadcaster: broadcaster,
		Reconcile:   scheduler,
		Version:     version,
		Log:         log.Named("http"),
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return fmt.Errorf("starting reconcile scheduler: %w", err)
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func openStore(cfg config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.StoreMode == storage.ModeMemory {
		log.Warn("using in-memory store, reservations will not survive a restart")
		return storage.NewInMemoryFallbackStore(), nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %q: %w", cfg.DataDir, err)
	}
	store, err := storage.OpenRemoteStore(cfg.DatabasePath(), log.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.DatabasePath()))
	return store, nil
}

// buildDirectory picks the identity source and wraps it in the Redis cache when configured.
func buildDirectory(cfg config.Config, store storage.Store, log *zap.Logger) (eligibility.Directory, func(), error) {
	var dir eligibility.Directory
	if cfg.IdentityURL != "" {
		dir = eligibility.NewHTTPDirectory(eligibility.HTTPConfig{
			BaseURL: cfg.IdentityURL,
			Token:   cfg.IdentityToken,
			Timeout: cfg.IdentityTimeout,
		})
		log.Info("using identity service", zap.String("url", cfg.IdentityURL))
	} else {
		dir = eligibility.NewStoreDirectory(store)
	}

	if cfg.RedisAddr == "" {
		return dir, func() {}, nil
	}

	cache, err := eligibility.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log.Named("redis"))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			log.Warn("closing redis", zap.Error(err))
		}
	}
	return eligibility.NewCachedDirectory(dir, cache, cfg.IdentityCacheTTL, log.Named("identity")), closeCache, nil
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
