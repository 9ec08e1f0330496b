package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonwraymond/datahealth/auth"
	"github.com/jonwraymond/datahealth/cache"
	"github.com/jonwraymond/datahealth/database"
	"github.com/jonwraymond/datahealth/health"
)

// Handler returns the HTTP surface:
//
//	GET /healthz                 liveness
//	GET /readyz                  readiness (PostgreSQL only)
//	GET /health                  combined summary
//	GET /health/postgres         single backend record
//	GET /health/redis            single backend record
//	GET /health/postgres/metrics monitoring snapshot
//	GET /health/redis/metrics    monitoring snapshot
//	GET /health/availability     database availability verdict
//	GET /metrics                 Prometheus scrape
//
// Everything under /health is behind the configured authenticator.
func (s *Service) Handler() http.Handler {
	protect := auth.Middleware(s.auth, s.logger)

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, s.agg, health.Routes{
		Alive: func() bool {
			return s.LivenessProbe(context.Background())
		},
		Ready:    s.ReadinessProbe,
		Reporter: s,
		Protect:  protect,
	})
	mux.Handle("GET /metrics", s.metrics)

	mux.Handle("GET /health/"+database.Name+"/metrics", protect(jsonHandler(func(ctx context.Context) any {
		return s.db.Metrics(ctx)
	})))
	mux.Handle("GET /health/"+cache.Name+"/metrics", protect(jsonHandler(func(ctx context.Context) any {
		return s.cache.Metrics(ctx)
	})))
	mux.Handle("GET /health/availability", protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := s.db.Availability(r.Context())
		code := http.StatusOK
		if !a.Available {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, a)
	})))
	return mux
}

func jsonHandler(fn func(context.Context) any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		writeJSON(w, http.StatusOK, fn(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
