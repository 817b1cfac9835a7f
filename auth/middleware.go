package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jonwraymond/artifactcache/observe"
)

// Middleware rejects requests that fail authentication with 401 and
// stores the caller's Identity in the request context otherwise.
func Middleware(a *JWTAuthenticator, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			if err != nil {
				logger.Debug(r.Context(), "request rejected",
					observe.Field{Key: "path", Value: r.URL.Path},
					observe.Field{Key: "error", Value: err},
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="artifactcache"`)
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole answers 403 unless the authenticated caller has role. An
// empty role lets every request through.
func RequireRole(role string, next http.Handler) http.Handler {
	if role == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).HasRole(role) {
			writeError(w, http.StatusForbidden, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
