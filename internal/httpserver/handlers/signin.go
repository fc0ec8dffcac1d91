package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// SignIn redirects to the provider named in the path.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, err := d.Auth.SignIn(w, chi.URLParam(r, "provider"))
		if err != nil {
			if errors.Is(err, auth.ErrUnknownProvider) {
				http.NotFound(w, r)
				return
			}
			d.Logger.Error("failed to start sign-in", logger.Error(err))
			http.Redirect(w, r, "/login?error=signin", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := d.Auth.Callback(w, r)
		if err != nil {
			d.Logger.Warn("sign-in failed", logger.Error(err))
			http.Redirect(w, r, "/login?error=signin", http.StatusSeeOther)
			return
		}
		d.Logger.Info("user signed in", logger.String("user", u.ID))
		http.Redirect(w, r, "/app", http.StatusSeeOther)
	}
}

// Logout revokes the session; the cookie is cleared even when revocation fails.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Auth.SignOut(w, r); err != nil {
			d.Logger.Warn("failed to revoke session", logger.Error(err))
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
