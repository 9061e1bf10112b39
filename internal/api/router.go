package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/instinctd/instinctd/internal/api/handlers"
	mw "github.com/instinctd/instinctd/internal/api/middleware"
	"github.com/instinctd/instinctd/internal/config"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/service"
	"github.com/instinctd/instinctd/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	DecaySweep   *service.DecaySweepService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	tenantStore := store.NewTenantStore(db)
	instinctStore := store.NewInstinctStore(db)
	outcomeStore := store.NewOutcomeStore(db)
	emotionStore := store.NewEmotionStore(db)

	// Services
	locks := service.NewMaintenanceLocks()
	calibrationSvc := service.NewCalibrationService(outcomeStore, instinctStore, locks, logger)
	instinctSvc := service.NewInstinctService(instinctStore, outcomeStore, calibrationSvc, logger)
	similaritySvc := service.NewSimilarityService(instinctStore, locks, logger)
	emotionSvc := service.NewEmotionService(emotionStore, logger)
	decaySvc := service.NewDecaySweepService(instinctStore, locks, logger)
	decaySvc.SetInterval(config.DecaySweepInterval())
	resolver := service.NewConflictResolver(nil)
	builder := service.NewContextBuilder(instinctStore, resolver, emotionSvc, logger)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(tenantStore)
	instinctHandler := handlers.NewInstinctHandler(instinctSvc)
	contextHandler := handlers.NewContextHandler(builder)
	emotionHandler := handlers.NewEmotionHandler(emotionSvc)
	maintenanceHandler := handlers.NewMaintenanceHandler(instinctSvc, similaritySvc, decaySvc, calibrationSvc)
	transferHandler := handlers.NewTransferHandler(instinctSvc)

	r := chi.NewRouter()

	app := &App{
		Router:     r,
		DecaySweep: decaySvc,
		startTime:  time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health (no auth)
	r.Get("/health", healthHandler(db))

	// Metrics (no auth)
	r.Get("/metrics", app.metricsHandler())

	// Tenant creation (no auth — bootstrap endpoint)
	r.Post("/v1/tenants", tenantHandler.Create)

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(tenantStore))

		// Instincts (observation, reinforcement, outcome feeds)
		r.Route("/instincts", func(r chi.Router) {
			r.Post("/", instinctHandler.Create)
			r.Get("/", instinctHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", instinctHandler.GetByID)
				r.Delete("/", instinctHandler.Delete)
				r.Post("/reinforce", instinctHandler.Reinforce)
				r.Post("/outcome", instinctHandler.RecordOutcome)
			})
		})

		// Context (consumer entry point)
		r.Get("/context", contextHandler.Build)

		// Emotional signals
		r.Route("/signals/emotion", func(r chi.Router) {
			r.Post("/", emotionHandler.Observe)
			r.Get("/", emotionHandler.Current)
		})

		// Export/import boundary
		r.Get("/export", transferHandler.Export)
		r.Post("/import", transferHandler.Import)

		// Maintenance (operator or scheduled job, never the hot path)
		r.Route("/maintenance", func(r chi.Router) {
			r.Get("/stale", maintenanceHandler.ListStale)
			r.Post("/cleanup", maintenanceHandler.CleanupStale)
			r.Get("/clusters", maintenanceHandler.FindClusters)
			r.Post("/merge", maintenanceHandler.MergeSimilar)
			r.Post("/decay", maintenanceHandler.TriggerDecaySweep)
			r.Post("/calibrate", maintenanceHandler.TriggerCalibration)
		})
	})

	return app
}

// NewRouter returns just the chi.Mux.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores satisfy interfaces at compile time.
var (
	_ domain.TenantStore   = (*store.TenantStore)(nil)
	_ domain.InstinctStore = (*store.InstinctStore)(nil)
	_ domain.OutcomeStore  = (*store.OutcomeStore)(nil)
	_ domain.EmotionStore  = (*store.EmotionStore)(nil)
)
