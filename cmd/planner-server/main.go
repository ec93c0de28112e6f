package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tourloop/planner/config"
	"github.com/tourloop/planner/internal/embedding"
	"github.com/tourloop/planner/internal/handler"
	"github.com/tourloop/planner/internal/middleware"
	"github.com/tourloop/planner/internal/orchestrator"
	"github.com/tourloop/planner/internal/repository"
	"github.com/tourloop/planner/internal/route"
	"github.com/tourloop/planner/internal/routecache"
	"github.com/tourloop/planner/internal/semantic"
	"github.com/tourloop/planner/internal/spatial"
	"github.com/tourloop/planner/internal/substitution"
	"github.com/tourloop/planner/internal/workerpool"
	"github.com/tourloop/planner/pkg/cache"
	"github.com/tourloop/planner/pkg/db"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("✓ PostgreSQL connected")

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ── Embedding client and worker pool ────────────────
	embedClient := embedding.New(
		cfg.Embedding.BaseURL,
		cfg.Embedding.APIKey,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.Asymmetric,
	)

	workers := workerpool.NewPool(runtime.NumCPU())
	defer workers.Close()
	log.Printf("✓ worker pool started with %d workers", runtime.NumCPU())

	// ── Initialize layers ───────────────────────────────
	poiRepo := repository.NewPOIRepository(pgPool)
	cellCacheRepo := repository.NewCellCacheRepository(redisClient, poiRepo, cfg.Planner.CellCacheTTL)
	routeCache := routecache.New(redisClient, cfg.Planner.UserCacheTTL)

	spatialSrc := spatial.NewSource(cellCacheRepo, cfg.Planner)
	semanticSrc := semantic.NewSource(embedClient, poiRepo)
	builder := route.NewBuilder(cfg.Planner)

	orch := orchestrator.New(spatialSrc, semanticSrc, builder, poiRepo, routeCache, workers, cfg.Planner)
	subSvc := substitution.NewService(routeCache, poiRepo, cfg.Planner)

	planningHandler := handler.NewPlanningHandler(orch)
	substitutionHandler := handler.NewSubstitutionHandler(subSvc)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()

	// Health check endpoint.
	router.HandleFunc("/health", healthHandler(pgPool, redisClient)).Methods(http.MethodGet)

	// API v1 routes.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/search", planningHandler.SearchRoutes).Methods(http.MethodPost)
	api.HandleFunc("/substitute/{route_id}/{poi_id}", substitutionHandler.ReplacePOI).Methods(http.MethodPost)
	api.HandleFunc("/substitute/{route_id}/{poi_id}/confirm", substitutionHandler.ConfirmReplace).Methods(http.MethodPost)
	api.HandleFunc("/routes/{route_id}/rebuild", planningHandler.RebuildRoute).Methods(http.MethodPost)
	api.HandleFunc("/users/{user_id}/visited", planningHandler.VisitedPOIs).Methods(http.MethodGet)

	// Wrap with panic recovery and request logging.
	wrapped := middleware.Recoverer(middleware.RequestLogger(router))

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in a goroutine so we can listen for shutdown signals.
	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Server.ServerAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
