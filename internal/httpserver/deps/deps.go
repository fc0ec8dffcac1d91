package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/bookmarks"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/version"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Build     version.Info
	TimeNow   func() time.Time // for testing, defaults to time.Now

	BaseURL        string        // public URL shown to CLI users
	AllowedHosts   []string      // Host headers allowed to access the server
	AllowedCIDRS   []string      // IPs allowed to access healthz/readyz/infra endpoints
	TrustProxy     bool          // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins    []string      // origins allowed to call the JSON API and open the feed
	RateBurst      int           // per-IP burst
	RatePerMin     int           // per-IP sustained rate
	RequestTimeout time.Duration // pages and API; the feed is long-lived and exempt

	Auth      *auth.Service
	Bookmarks *bookmarks.Service
	Feed      feed.Feed
	StoreKind string // "redis" | "sqlite" | "memory", reported by /infra

	RedisClient *redis.Client // optional, nil when Redis is not configured
}
