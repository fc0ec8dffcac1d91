package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
)

type componentStatus struct {
	OK          bool   `json:"ok"`
	Mode        string `json:"mode,omitempty"`
	Impact      string `json:"impact,omitempty"`
	Subscribers *int   `json:"subscribers,omitempty"`
	Error       string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store": checkStore(r.Context(), d),
			"redis": checkRedis(r.Context(), d),
			"feed":  checkFeed(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     determineStatus(components),
			Version:    d.Build.Version,
			Components: components,
		})
	}
}

func determineStatus(components map[string]componentStatus) string {
	// No store = nothing works
	if store, exists := components["store"]; exists && !store.OK {
		return "critical"
	}

	// Redis down with another store = no cross-instance feed or shared sign-out
	if redis, exists := components["redis"]; exists && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}

	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := d.Bookmarks.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   d.StoreKind,
			Impact: "bookmarks-unavailable",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: d.StoreKind}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     true,
			Mode:   "disabled",
			Impact: "single-instance-feed",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "live-updates-and-sign-out-degraded",
			Error:  "timeout",
		}
	}

	return componentStatus{OK: true, Mode: "optimal"}
}

func checkFeed(d deps.Deps) componentStatus {
	switch f := d.Feed.(type) {
	case *feed.Hub:
		n := f.Subscribers()
		return componentStatus{OK: true, Mode: "in-process", Subscribers: &n}
	case *feed.RedisFeed:
		n := f.Subscribers()
		return componentStatus{OK: true, Mode: "redis-pubsub", Subscribers: &n}
	case nil:
		return componentStatus{OK: false, Mode: "disabled", Impact: "no-live-updates"}
	default:
		return componentStatus{OK: true}
	}
}
