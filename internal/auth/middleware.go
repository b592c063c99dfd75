package auth

import (
	"net/http"

	"moneytracker/internal/log"
)

// PublicPaths are reachable without a token.
var PublicPaths = []string{"/api/auth", "/healthz", "/readyz"}

func isPublic(path string) bool {
	for _, p := range PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// Middleware rejects requests without a valid token cookie. A nil
// authenticator disables the check.
func Middleware(a *Authenticator, logger *log.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentAuth)
	if a == nil {
		logger.Warn("Authentication disabled, every endpoint is public")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}
			user, err := a.ParseToken(cookie.Value)
			if err != nil {
				logger.DebugContext(r.Context(), "Rejected token",
					log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "").WithError(err).ToSlice()...)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}
