package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Kdotropez/loto-news-sub001/internal/budget"
	"github.com/Kdotropez/loto-news-sub001/internal/config"
	"github.com/Kdotropez/loto-news-sub001/internal/cover"
	"github.com/Kdotropez/loto-news-sub001/internal/game"
	"github.com/Kdotropez/loto-news-sub001/internal/metrics"
	"github.com/Kdotropez/loto-news-sub001/internal/session"
	"github.com/Kdotropez/loto-news-sub001/internal/store"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "optional TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("store initialisation failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Spending limits ---
	var limiter *budget.Limiter
	if cfg.BudgetEnabled() {
		limiter = budget.NewLimiter(cfg.BudgetCaps())
		slog.Info("spending limits enabled",
			"per_session", limiter.MaxPerSession.String(),
			"per_draw", limiter.MaxPerDraw.String(),
			"per_week", limiter.MaxPerWeek.String(),
		)
	}

	// --- WebSocket hub ---
	wsHub := game.NewWSHub()
	go wsHub.Run(ctx)

	// --- Game service ---
	optimizer := cover.NewOptimizer(cover.Options{
		CandidateCap:  cfg.Cover.CandidateCap,
		MaxPoolSize:   cfg.Cover.MaxPoolSize,
		MaxIterations: cfg.Cover.MaxIterations,
	})
	opts := optimizer.Options()
	slog.Info("optimizer configured",
		"candidate_cap", opts.CandidateCap,
		"max_pool_size", opts.MaxPoolSize,
		"max_iterations", opts.MaxIterations,
	)
	gameSvc := game.NewService(optimizer, session.NewManager(st, limiter), wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"loto-optimizer"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	// The WebSocket route must not carry a request timeout.
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHub.HandleWS)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			gameSvc.Routes(r)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("loto-optimizer listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down loto-optimizer...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("loto-optimizer stopped")
}

// openStore selects the session backend: PostgreSQL (optionally behind a
// Redis cache), then SQLite, then a Redis key-value document, then memory.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, []func(), error) {
	var cleanup []func()

	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection: %w", err)
		}
		cleanup = append(cleanup, pool.Close)

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL == "" {
			return pg, cleanup, nil
		}
		rdb, err := newRedis(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		cleanup = append(cleanup, func() { rdb.Close() })
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String())
		return store.NewCachedStore(pg, rdb, cfg.CacheTTL.Duration), cleanup, nil

	case cfg.SQLitePath != "":
		sq, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = append(cleanup, func() { sq.Close() })
		slog.Info("using SQLite store", "path", cfg.SQLitePath)
		return sq, cleanup, nil

	case cfg.RedisURL != "":
		rdb, err := newRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup = append(cleanup, func() { rdb.Close() })
		slog.Info("using Redis key-value store", "key", store.DefaultSessionsKey)
		return store.NewKVStore(store.NewRedisKV(rdb), store.DefaultSessionsKey), cleanup, nil

	default:
		slog.Warn("no DATABASE_URL, SQLITE_PATH or REDIS_URL set, using in-memory store (data will not persist)")
		return store.NewMemoryStore(), nil, nil
	}
}

func newRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
