package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tailwise-insights/internal/cache"
	"tailwise-insights/internal/genai"
	"tailwise-insights/internal/handlers"
	"tailwise-insights/internal/httpserver"
	"tailwise-insights/internal/insights"
	"tailwise-insights/internal/metrics"
	"tailwise-insights/internal/petdir"
	"tailwise-insights/internal/queue"
	"tailwise-insights/pkg/logging/logging"
)

type Config struct {
	Port         string
	CacheBackend string // "memory" or "redis"
	CacheTTL     time.Duration
	RedisAddr    string

	GenAIBaseURL string
	GenAIAPIKey  string
	GenAIModels  []string

	QueueMaxRequests int
	QueueWindow      time.Duration

	PetDirectoryFile string
}

func LoadConfig() Config {
	return Config{
		Port:         getenv("PORT", "8080"),
		CacheBackend: getenv("CACHE_BACKEND", "memory"),
		CacheTTL:     getenvDuration("CACHE_TTL", cache.DefaultTTL),
		RedisAddr:    getenv("REDIS_ADDR", "127.0.0.1:6379"),

		GenAIBaseURL: getenv("GENAI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GenAIAPIKey:  os.Getenv("GENAI_API_KEY"),
		GenAIModels:  splitList(os.Getenv("GENAI_MODELS")),

		QueueMaxRequests: getenvInt("QUEUE_MAX_REQUESTS", 10),
		QueueWindow:      getenvDuration("QUEUE_WINDOW", time.Minute),

		PetDirectoryFile: os.Getenv("PET_DIRECTORY_FILE"),
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("insights service exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := LoadConfig()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.String("genai_base_url", cfg.GenAIBaseURL),
		zap.Bool("genai_key_set", cfg.GenAIAPIKey != ""),
		zap.Int("queue_max_requests", cfg.QueueMaxRequests),
		zap.Duration("queue_window", cfg.QueueWindow),
	)

	if cfg.GenAIAPIKey == "" {
		// Intentionally not fatal: the service keeps serving cached
		// insights and reports ai_not_configured for everything else.
		logger.Warn("GENAI_API_KEY is not set, generation calls will fail")
	}

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.CacheBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)
	}

	// ----- Response cache -----
	store := cache.NewStore(cache.Config{
		Backend: cfg.CacheBackend,
		Prefix:  "tailwise",
	}, redisClient)
	store = cache.NewLoggingStore(store)
	responseCache := cache.New(store, cfg.CacheTTL)

	// ----- Generation client behind the rate-limited queue -----
	genClient, err := genai.NewClient(genai.Config{
		BaseURL: cfg.GenAIBaseURL,
		APIKey:  cfg.GenAIAPIKey,
		Models:  cfg.GenAIModels,
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := genClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	genQueue := queue.New(genClient, queue.Limits{
		MaxRequestsPerWindow: cfg.QueueMaxRequests,
		WindowDuration:       cfg.QueueWindow,
	}, logger)
	defer genQueue.Close()

	// ----- Pet directory -----
	var pets petdir.Directory
	if cfg.PetDirectoryFile != "" {
		static, err := petdir.NewStaticFromFile(cfg.PetDirectoryFile)
		if err != nil {
			logger.Error("pet directory load failed", zap.Error(err))
			return err
		}
		logger.Info("pet directory loaded",
			zap.String("file", cfg.PetDirectoryFile),
			zap.Int("pets", static.Len()),
		)
		pets = static
	} else {
		logger.Warn("PET_DIRECTORY_FILE is not set, every pet lookup will 404")
		pets = petdir.NewStatic(nil)
	}

	// ----- Feature façade + handlers -----
	service := insights.NewService(pets, genQueue, responseCache, logger)
	insightsHandler := handlers.NewInsightsHandler(service)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, insightsHandler)

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting insights service",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
