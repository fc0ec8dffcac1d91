package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() {
	Register(Group{Name: "auth-pages", Routes: registerAuthPages, Use: []MiddlewareFactory{requestTimeout}})
	Register(Group{Name: "app-pages", Routes: registerAppPages, Use: []MiddlewareFactory{requestTimeout, requirePageUser}})
}

func requestTimeout(d deps.Deps) Middleware {
	if d.RequestTimeout <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.Timeout(d.RequestTimeout)
}

func requirePageUser(d deps.Deps) Middleware {
	return mw.RequirePageUser(d.Auth, d.Logger)
}

func registerAuthPages(r chi.Router, d deps.Deps) {
	r.Get("/", handlers.Home(d))
	r.Get("/login", handlers.Login(d))
	r.Get("/auth/callback", handlers.Callback(d))
	r.Get("/auth/{provider}", handlers.SignIn(d))
	r.Post("/logout", handlers.Logout(d))
}

func registerAppPages(r chi.Router, d deps.Deps) {
	r.Get("/app", handlers.App(d))
	r.Get("/app/token", handlers.Token(d))
	r.Post("/app/bookmarks", handlers.AddBookmarkForm(d))
	r.Post("/app/bookmarks/{id}/delete", handlers.DeleteBookmarkForm(d))
}
