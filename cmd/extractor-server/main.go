package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/webimport/product-extractor/internal/api"
	"github.com/webimport/product-extractor/internal/cache"
	"github.com/webimport/product-extractor/internal/config"
	"github.com/webimport/product-extractor/internal/database"
	"github.com/webimport/product-extractor/internal/events"
	"github.com/webimport/product-extractor/internal/extract"
	"github.com/webimport/product-extractor/internal/jobs"
	"github.com/webimport/product-extractor/internal/queue"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database is optional; without it extraction works but nothing
	// persists and no events are published.
	var db *database.DB
	var publisher *events.Publisher
	var imports *database.ImportRepository
	if cfg.Database.Host != "" {
		db, err = database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		publisher = events.NewPublisher(db, logger)
		imports = database.NewImportRepository(db)
	} else {
		logger.Warn("DB_HOST not set, running without persistence")
	}

	// Redis is optional; it backs the result cache and the outbox relay.
	var redisClient *redis.Client
	var resultCache *cache.ResultCache
	var relay *database.Relay
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, logger)

		if db != nil {
			relay = database.NewRelay(db, redisClient, logger, database.RelayConfig{
				Stream:       cfg.Redis.Stream,
				PollInterval: 5 * time.Second,
				BatchSize:    100,
			})
			go func() {
				if err := relay.Start(ctx); err != nil && err != context.Canceled {
					logger.Error("relay stopped with error", "error", err)
				}
			}()
		}
	} else {
		logger.Warn("REDIS_ADDR not set, running without cache and relay")
	}

	// Initialize the extraction engine
	engine := extract.NewEngine(extract.Options{
		DefaultCurrency:        cfg.Extractor.DefaultCurrency,
		LowStockThreshold:      cfg.Extractor.LowStockThreshold,
		MaxImages:              cfg.Extractor.MaxImages,
		AllowEqualComparePrice: cfg.Extractor.AllowEqualComparePrice,
		FetchTimeout:           cfg.Extractor.FetchTimeout,
	}, logger)

	// Initialize job manager and start its worker pool
	taskQueue := queue.NewInMemoryQueue(cfg.Jobs.QueueMax)
	defer taskQueue.Close()

	jobManager := jobs.NewManager(engine, taskQueue, publisher, resultCache, cfg.Jobs.Workers, logger)
	go jobManager.StartWorkers(ctx)

	// Initialize API handlers
	handlers := api.NewHandlers(engine, jobManager, publisher, resultCache, imports, logger)

	// Setup Chi router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		health := map[string]interface{}{
			"status": "ok",
		}

		status := http.StatusOK
		if relay != nil {
			pendingCount, deadLetterCount, _ := relay.QueueDepth(r.Context())

			health["outbox"] = map[string]interface{}{
				"pending":     pendingCount,
				"dead_letter": deadLetterCount,
			}

			if pendingCount > 1000 {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if deadLetterCount > 100 {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(health)
	})

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", handlers.Extract)
		r.Post("/import", handlers.Import)
		r.Get("/imports", handlers.ListImports)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", handlers.CreateJob)
			r.Get("/", handlers.ListJobs)
			r.Get("/{jobID}", handlers.GetJob)
			r.Get("/{jobID}/results", handlers.GetJobResults)
		})

		r.Get("/stats", handlers.GetStats)
	})

	// Start server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
