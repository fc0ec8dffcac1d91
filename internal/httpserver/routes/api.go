package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() {
	Register(Group{Name: "api", Routes: registerAPI, Use: []MiddlewareFactory{requestTimeout, requireAPIUser}})
	// the feed is long-lived: no request timeout
	Register(Group{Name: "api-feed", Routes: registerFeed, Use: []MiddlewareFactory{requireAPIUser}})
}

func requireAPIUser(d deps.Deps) Middleware {
	return mw.RequireAPIUser(d.Auth, d.Logger)
}

func registerAPI(r chi.Router, d deps.Deps) {
	r.Get("/api/me", handlers.Me(d))
	r.Get("/api/bookmarks", handlers.ListBookmarks(d))
	r.Post("/api/bookmarks", handlers.CreateBookmark(d))
	r.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
}

func registerFeed(r chi.Router, d deps.Deps) {
	r.Get("/api/feed", handlers.Feed(d))
}
