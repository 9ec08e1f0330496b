package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/datahealth/observe"
)

// Middleware rejects requests that a fails to authenticate with 401 and
// attaches the caller identity to the request context otherwise. A nil
// authenticator lets every request through as anonymous.
func Middleware(a Authenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if a == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, AnonymousIdentity())))
				return
			}

			result, err := a.Authenticate(ctx, RequestFromHTTP(r))
			if err != nil {
				logger.Error(ctx, "authentication error", observe.Err(err), observe.F("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "authentication unavailable")
				return
			}
			if !result.Authenticated {
				logger.Warn(ctx, "request rejected",
					observe.F("path", r.URL.Path),
					observe.F("method", result.Method),
					observe.Err(result.Error),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="datahealth"`)
				writeError(w, http.StatusUnauthorized, result.Error.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
