package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/mw"
)

func init() {
	Register(Group{Name: "infra", Routes: registerInfra, Use: []MiddlewareFactory{allowOnlyCIDRS}})
}

func allowOnlyCIDRS(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRs(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

func registerInfra(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))
	r.Get("/infra", handlers.Infra(d))
}
