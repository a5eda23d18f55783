// Package main runs the admin backend: the periodic metrics aggregation
// pipeline, the payment webhook processor, the dashboard WebSocket stream,
// and the read API over current metrics, history, alerts, and thresholds.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"admin-pulse/internal/alerting"
	"admin-pulse/internal/dashboard"
	"admin-pulse/internal/email"
	"admin-pulse/internal/metrics"
	"admin-pulse/internal/observability"
	"admin-pulse/internal/payments"
	"admin-pulse/internal/payments/stub"
	"admin-pulse/internal/realtime"
	"admin-pulse/internal/storage"
	chstore "admin-pulse/internal/storage/clickhouse"
	"admin-pulse/internal/storage/memory"
	"admin-pulse/internal/storage/migrations"
	pgstore "admin-pulse/internal/storage/postgres"
	"admin-pulse/internal/webhook"
)

// allStores holds all storage implementations.
type allStores struct {
	users       storage.UserStore
	sessions    storage.SessionStore
	pageViews   storage.PageViewStore
	events      storage.AnalyticsEventStore
	deadLetters storage.DeadLetterStore
}

func main() {
	// Load .env if present; real env vars win.
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("ADDR", ":8080"), "API HTTP address")
	metricsAddr := flag.String("metrics-addr", envOr("METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for webhook idempotency (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	tickInterval := flag.Duration("tick-interval", realtime.DefaultInterval, "Metrics aggregation interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	obs := observability.NewMetrics("")

	// Aggregation pipeline.
	source := metrics.NewSource(metrics.SourceOptions{
		SessionStore:        stores.sessions,
		PageViewStore:       stores.pageViews,
		AnalyticsEventStore: stores.events,
		Queries:             obs,
	})
	aggregator := realtime.NewAggregator(realtime.Options{
		Source:   source,
		Engine:   alerting.NewEngine(alerting.DefaultThresholds()),
		Interval: *tickInterval,
		Logger:   log.New(os.Stdout, "[aggregator] ", log.LstdFlags|log.Lshortfile),
		Observer: obs,
	})
	aggregator.Publisher().SetPanicHook(obs.SubscriberPanics.Inc)
	unsubscribeObs := aggregator.Publisher().Subscribe(obs.RealtimeSubscriber())
	defer unsubscribeObs()

	// Webhook pipeline.
	idempotency, closeIdempotency := createIdempotencyStore(*redisAddr, logger)
	defer closeIdempotency()

	processor, err := webhook.NewProcessor(webhook.Options{
		Users:       stores.users,
		Events:      stores.events,
		DeadLetters: stores.deadLetters,
		Idempotency: idempotency,
		Payments:    createPaymentsClient(),
		Emails:      email.NewLogSender(log.New(os.Stdout, "[email] ", log.LstdFlags)),
		Logger:      log.New(os.Stdout, "[webhook] ", log.LstdFlags|log.Lshortfile),
		Observer:    obs,
	})
	if err != nil {
		logger.Fatalf("Failed to create webhook processor: %v", err)
	}

	// Dashboard stream.
	hub, err := dashboard.NewHub(dashboard.Options{
		Publisher: aggregator.Publisher(),
		Logger:    log.New(os.Stdout, "[dashboard] ", log.LstdFlags),
		Latest:    aggregator.LatestMetrics,
		Clients:   obs.WSClients,
	})
	if err != nil {
		logger.Fatalf("Failed to create dashboard hub: %v", err)
	}

	aggregator.Start()
	defer aggregator.Stop()

	api := &apiServer{
		aggregator:  aggregator,
		processor:   processor,
		deadLetters: stores.deadLetters,
		hub:         hub,
		logger:      logger,
	}

	apiSrv := &http.Server{Addr: *addr, Handler: api.routes()}
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: metricsRoutes()}

	errCh := make(chan error, 2)
	go func() {
		logger.Printf("API listening on %s", *addr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()
	go func() {
		logger.Printf("Metrics listening on %s", *metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, shutting down...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Println("Shutdown complete")
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			users:       memory.NewUserStore(),
			sessions:    memory.NewSessionStore(),
			pageViews:   memory.NewPageViewStore(),
			events:      memory.NewAnalyticsEventStore(),
			deadLetters: memory.NewDeadLetterStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
	}

	stores := &allStores{
		users:       pgstore.NewUserStore(pool),
		sessions:    pgstore.NewSessionStore(pool),
		deadLetters: pgstore.NewDeadLetterStore(pool),
		pageViews:   chstore.NewPageViewStore(chConn),
		events:      chstore.NewAnalyticsEventStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// createIdempotencyStore returns a Redis-backed store when an address is
// configured, otherwise an in-process one.
func createIdempotencyStore(redisAddr string, logger *log.Logger) (webhook.IdempotencyStore, func()) {
	if redisAddr == "" {
		logger.Println("REDIS_ADDR not set, using in-process webhook idempotency")
		return webhook.NewMemoryIdempotencyStore(), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	return webhook.NewRedisIdempotencyStore(client, 0), func() { _ = client.Close() }
}

// createPaymentsClient returns the provider client. Without a real
// provider integration configured this is the stub.
func createPaymentsClient() payments.Client {
	return stub.NewClient()
}

// metricsRoutes serves health and Prometheus metrics.
func metricsRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// envOr returns the environment value or a fallback.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
