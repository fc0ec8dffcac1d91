package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const feedWriteTimeout = 5 * time.Second

// Feed upgrades to a websocket and streams the user's change events as
// JSON text messages until either side goes away.
func Feed(d deps.Deps) http.HandlerFunc {
	origins := originPatterns(d.CORSOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFrom(r.Context())

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			d.Logger.Warn("websocket upgrade failed", logger.Error(err))
			return
		}
		defer conn.CloseNow()

		// nothing is expected from the client; this only notices when it leaves
		ctx := conn.CloseRead(r.Context())

		sub, err := d.Feed.Subscribe(ctx, feed.ForUser(user.ID))
		if err != nil {
			d.Logger.Warn("feed subscription failed", logger.Error(err))
			_ = conn.Close(websocket.StatusTryAgainLater, "feed unavailable")
			return
		}
		defer sub.Close()

		d.Logger.Debug("feed client connected", logger.String("user", user.ID))

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					_ = conn.Close(websocket.StatusGoingAway, "feed closed")
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					d.Logger.Error("failed to marshal event", logger.Error(err))
					continue
				}
				if err := writeWithTimeout(ctx, conn, data); err != nil {
					d.Logger.Debug("feed client write failed", logger.Error(err))
					return
				}
			}
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// originPatterns turns allowed CORS origins into the host patterns the
// websocket handshake checks. Same-origin requests are always accepted.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			patterns = append(patterns, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
