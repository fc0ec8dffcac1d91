package mw

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// LoginPath is where pages send visitors without a session.
const LoginPath = "/login"

// RequirePageUser resolves the session and stores the user in the request
// context. Visitors without a session are redirected to the login page
// before anything is rendered.
func RequirePageUser(svc *auth.Service, log logger.Logger) func(http.Handler) http.Handler {
	return requireUser(svc, log, func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, domain.ErrAuthRequired) {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		http.Error(w, domain.GenericFailureMessage, http.StatusBadGateway)
	})
}

// RequireAPIUser is RequirePageUser for JSON clients: 401 instead of a redirect.
func RequireAPIUser(svc *auth.Service, log logger.Logger) func(http.Handler) http.Handler {
	return requireUser(svc, log, func(w http.ResponseWriter, _ *http.Request, err error) {
		status, msg := http.StatusBadGateway, domain.GenericFailureMessage
		if errors.Is(err, domain.ErrAuthRequired) {
			status, msg = http.StatusUnauthorized, "authentication required"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	})
}

func requireUser(svc *auth.Service, log logger.Logger, reject func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := svc.CurrentUser(r)
			if err != nil {
				if !errors.Is(err, domain.ErrAuthRequired) {
					log.Warn("session check failed", logger.Error(err))
				}
				reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}
