package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/notifeed/internal/application/health"
	"github.com/aescanero/notifeed/internal/application/history"
	"github.com/aescanero/notifeed/internal/application/notifier"
	"github.com/aescanero/notifeed/internal/config"
	"github.com/aescanero/notifeed/pkg/adapters/connection/websocket"
	eventsmemory "github.com/aescanero/notifeed/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/notifeed/pkg/adapters/events/redis"
	"github.com/aescanero/notifeed/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/notifeed/pkg/adapters/render"
	storagememory "github.com/aescanero/notifeed/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/notifeed/pkg/adapters/storage/redis"
	"github.com/aescanero/notifeed/pkg/api/http"
	livews "github.com/aescanero/notifeed/pkg/api/websocket"
	"github.com/aescanero/notifeed/pkg/ports"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

// store is a KVStore that can report its reachability
type store interface {
	ports.KVStore
	health.Pinger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting notifeed",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store and event bus
	var (
		kv          store
		eventBus    ports.EventBus
		redisClient *goredis.Client
	)
	switch cfg.StoreBackend {
	case config.StoreBackendRedis:
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		kv = storageredis.NewKVStore(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.KeyTTL, logger)
		eventBus = eventsredis.NewPubSubEventBus(redisClient, cfg.Redis.EventChannel, logger)
	default:
		kv = storagememory.NewKVStore()
		eventBus = eventsmemory.NewBus(eventsmemory.DefaultBuffer, logger)
	}

	metricsCollector := prometheus.NewCollector(nil)

	// Initialize application components
	notificationHistory := history.New(kv, cfg.History.Key, cfg.History.Max)

	page := render.NewDocument(render.Config{
		Title:     cfg.Render.Title,
		TargetID:  cfg.Render.TargetID,
		ClassName: cfg.Render.ClassName,
		LivePath:  "/ws",
	})

	handler := notifier.New(
		notificationHistory,
		page,
		metricsCollector,
		logger,
		notifier.WithLabel(cfg.History.Label),
		notifier.WithEventBus(eventBus),
	)

	// Serve whatever is stored before the upstream connects.
	handler.Refresh(ctx)

	monitor := health.NewMonitor(kv, cfg.Timeouts.HealthCheckInterval, logger)
	monitor.Start()

	// Initialize API server
	httpServer := http.NewServer(&http.Config{
		Port:    cfg.HTTPPort,
		Page:    page,
		History: notificationHistory,
		Clearer: handler,
		Health:  monitor,
		Logger:  logger,
	})

	liveHandler := livews.NewHandler(eventBus, page, metricsCollector, logger)
	httpServer.SetupWebSocket(liveHandler.HandleLive)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Connect upstream. The connection is not retried; the page keeps
	// serving the stored history after it closes.
	var upstreamHeader nethttp.Header
	if cfg.Upstream.Origin != "" {
		upstreamHeader = nethttp.Header{"Origin": []string{cfg.Upstream.Origin}}
	}
	client := websocket.NewClient(&websocket.Config{
		Endpoint:         cfg.Upstream.Endpoint,
		HandshakeTimeout: cfg.Timeouts.Dial,
		Header:           upstreamHeader,
		Logger:           logger,
	})
	go func() {
		if err := client.Run(ctx, monitor.Track(handler)); err != nil {
			logger.Error("upstream connection failed",
				zap.String("endpoint", client.Endpoint()),
				zap.Error(err))
		}
	}()

	logger.Info("notifeed started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("upstream", cfg.Upstream.Endpoint),
		zap.String("store", cfg.StoreBackend),
		zap.Int("history_max", notificationHistory.Max()))

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	monitor.Stop()

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("notifeed shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
