package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tailwise-insights/internal/handlers"
	"tailwise-insights/internal/metrics"
	"tailwise-insights/internal/middleware"
)

func SetupRouter(r *chi.Mux, baseLogger *zap.Logger, insightsHandler *handlers.InsightsHandler) {

	r.Use(metrics.Middleware)

	// base middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Use(middleware.LoggingContext(baseLogger))
	r.Use(middleware.Recoverer())
	// Generation calls can sit in the rate-limit queue; the request timeout
	// has to cover that wait, not just the upstream call.
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(middleware.MaxBodySize(64 * 1024))

	// routes
	r.Route("/v1/pets/{petID}/insights", func(r chi.Router) {
		r.Get("/tips", insightsHandler.Tips)
		r.Get("/recommendations", insightsHandler.Recommendations)
		r.Get("/reminders", insightsHandler.Reminders)
		r.Get("/status", insightsHandler.Status)
	})

	// health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", metrics.Handler())
}
