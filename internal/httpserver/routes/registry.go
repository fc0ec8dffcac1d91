// Package routes collects route groups from init functions so the server
// only has to call RegisterAll.
package routes

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
	// MiddlewareFactory builds a middleware once the dependencies are known.
	MiddlewareFactory func(d deps.Deps) Middleware
)

// Group is a set of routes sharing middlewares.
type Group struct {
	Name   string
	Routes Registrar
	Use    []MiddlewareFactory
}

var groups = map[string]Group{}

// Register adds a group. Names must be unique.
func Register(g Group) {
	if _, dup := groups[g.Name]; dup {
		panic("routes: duplicate group " + g.Name)
	}
	groups[g.Name] = g
}

// RegisterAll mounts every group in name order and returns the names.
func RegisterAll(r chi.Router, d deps.Deps) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g := groups[name]
		r.Group(func(gr chi.Router) {
			for _, f := range g.Use {
				gr.Use(f(d))
			}
			g.Routes(gr, d)
		})
		d.Logger.Debug("route group mounted",
			logger.String("group", name),
			logger.Int("middlewares", len(g.Use)),
		)
	}
	return names
}
