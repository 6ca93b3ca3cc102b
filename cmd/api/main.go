package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/freetime/internal/api"
	"example.com/freetime/internal/auth"
	"example.com/freetime/internal/cache"
	"example.com/freetime/internal/config"
	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/outbox"
	"example.com/freetime/internal/persistence/memory"
	"example.com/freetime/internal/persistence/postgres"
	httptransport "example.com/freetime/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []domain.ServiceOption
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.SuggestionCacheTTL)
		if err != nil {
			log.Fatalf("failed to configure redis cache: %v", err)
		}
		defer redisCache.Close()
		opts = append(opts, domain.WithCache(redisCache))
		log.Printf("suggestion cache enabled (ttl=%s)", cfg.SuggestionCacheTTL)
	}

	var (
		repo       domain.Repository
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		mem := memory.NewRepository()
		if cfg.CatalogSeedPath != "" {
			seed, err := memory.LoadSeed(cfg.CatalogSeedPath)
			if err != nil {
				log.Fatalf("failed to load catalog seed: %v", err)
			}
			n, err := mem.Apply(ctx, seed, time.Now().UTC())
			if err != nil {
				log.Fatalf("failed to apply catalog seed: %v", err)
			}
			log.Printf("seeded %d activities for %s/%s", n, seed.TenantID, seed.UserID)
		}
		log.Printf("using in-memory storage; events are not published")
		repo = mem
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		go dispatcher.Start(ctx)

		repo = postgres.NewRepository(pool)
	default:
		log.Fatalf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	service := domain.NewService(repo, opts...)
	handler := api.NewHandler(service, api.WithMaxBodyBytes(cfg.MaxRequestBytes))

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, auth.PublicPaths)
	limiter := httptransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, httptransport.DefaultLimiterSweepInterval)

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), httptransport.Chain(mux,
		httptransport.CORS(cfg.CORSAllowedOrigin),
		httptransport.RequestLogger(nil),
		authMiddleware.Wrap,
		limiter.Middleware,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("freetime-service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
