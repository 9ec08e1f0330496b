package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ProbeResponse is the JSON body of the liveness and readiness endpoints.
type ProbeResponse struct {
	Status    string `json:"status"`
	Ready     *bool  `json:"ready,omitempty"`
	Alive     *bool  `json:"alive,omitempty"`
	Timestamp string `json:"timestamp"`
}

// LivenessHandler returns an HTTP handler for liveness probes.
// A nil alive func reports the process as alive.
func LivenessHandler(alive func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := alive == nil || alive()
		writeProbe(w, ProbeResponse{Alive: &ok}, ok)
	}
}

// ReadinessHandler returns an HTTP handler for readiness probes.
func ReadinessHandler(ready func(context.Context) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		ok := ready(ctx)
		writeProbe(w, ProbeResponse{Ready: &ok}, ok)
	}
}

func writeProbe(w http.ResponseWriter, resp ProbeResponse, ok bool) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	if ok {
		resp.Status = "ok"
		w.WriteHeader(http.StatusOK)
	} else {
		resp.Status = "unavailable"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// DetailedHandler returns an HTTP handler that serves the combined summary.
func DetailedHandler(reporter Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		summary := reporter.Report(ctx)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode(summary.Overall.Status))
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// SingleCheckHandler returns an HTTP handler for checking a single backend.
func SingleCheckHandler(agg *Aggregator, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := agg.Check(ctx, name)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": err.Error(),
			})
			return
		}

		w.WriteHeader(statusCode(result.Status))
		_ = json.NewEncoder(w).Encode(result.Record())
	}
}

func statusCode(s Status) int {
	switch s {
	case StatusHealthy, StatusDegraded:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

// Routes configures RegisterHandlers.
type Routes struct {
	// Alive answers /healthz. Nil reports the process as alive.
	Alive func() bool

	// Ready answers /readyz. Nil treats any overall status other than
	// unhealthy as ready.
	Ready func(context.Context) bool

	// Reporter serves /health. Default: the aggregator.
	Reporter Reporter

	// Protect wraps /health and the per-backend routes. Nil leaves them open.
	Protect func(http.Handler) http.Handler
}

// RegisterHandlers registers GET /healthz, /readyz, /health and one
// /health/<name> route per registered checker on mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator, routes Routes) {
	reporter := routes.Reporter
	if reporter == nil {
		reporter = agg
	}
	ready := routes.Ready
	if ready == nil {
		ready = func(ctx context.Context) bool {
			return reporter.Report(ctx).Overall.Status != StatusUnhealthy
		}
	}
	protect := routes.Protect
	if protect == nil {
		protect = func(h http.Handler) http.Handler { return h }
	}

	mux.Handle("GET /healthz", LivenessHandler(routes.Alive))
	mux.Handle("GET /readyz", ReadinessHandler(ready))
	mux.Handle("GET /health", protect(DetailedHandler(reporter)))
	for _, name := range agg.CheckerNames() {
		mux.Handle("GET /health/"+name, protect(SingleCheckHandler(agg, name)))
	}
}
