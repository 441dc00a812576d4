package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Swapnanilmanna1701/tracker/api"
	"github.com/Swapnanilmanna1701/tracker/storage"
	"github.com/Swapnanilmanna1701/tracker/tracker"
)

func main() {
	logger := log.New()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		logger.SetLevel(log.DebugLevel)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	kv, err := newKV(logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	records := storage.NewRecords(kv, os.Getenv("STORAGE_NAMESPACE"), logger)

	persister := tracker.NewAsyncPersister(records, logger, envDur(logger, "PERSIST_TIMEOUT", 10*time.Second))
	store := tracker.New(records, persister, logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.Initialize(initCtx)
	cancel()
	if err != nil {
		logger.Fatalf("initialize tasks: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Decompress())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))
	api.Register(e, store, records, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("LISTEN_ADDR"); ok && val != "" {
		listenAddr = val
	}

	go func() {
		if err := e.Start(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	persister.Close()
	logger.Info("tracker stopped")
}

// newKV selects the persistence backend from STORAGE_BACKEND.
func newKV(logger *log.Logger) (storage.KV, error) {
	backend := strings.ToLower(os.Getenv("STORAGE_BACKEND"))
	switch backend {
	case "", "memory":
		logger.Warn("using in-memory storage, tasks are lost on restart")
		return storage.NewMemory(), nil
	case "redis":
		rc, err := newRedisClient()
		if err != nil {
			return nil, err
		}
		logger.Info("using redis storage")
		return storage.NewRedisKV(rc), nil
	case "table":
		connStr := os.Getenv("STORAGE_CONNECTION_STRING")
		table := os.Getenv("TASKS_TABLE")
		if connStr == "" || table == "" {
			return nil, errors.New("missing table storage config")
		}
		tkv, err := storage.NewTableKV(connStr, table)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := tkv.EnsureTable(ctx); err != nil {
			return nil, err
		}
		ttl := envDur(logger, "CACHE_TTL", 0)
		if ttl <= 0 {
			logger.WithField("table", table).Info("using table storage")
			return tkv, nil
		}
		rc, err := newRedisClient()
		if err != nil {
			return nil, err
		}
		logger.WithFields(log.Fields{"table": table, "cache_ttl": ttl}).Info("using table storage with redis cache")
		return storage.NewCache(tkv, rc, ttl), nil
	}
	return nil, errors.New("unknown STORAGE_BACKEND " + strconv.Quote(backend))
}

func newRedisClient() (*redis.Client, error) {
	opts, err := storage.ParseRedisOptions(os.Getenv("REDIS_CONNECTION_STRING"))
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func envDur(logger *log.Logger, key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		logger.Fatalf("invalid %s: %q", key, v)
	}
	return d
}
