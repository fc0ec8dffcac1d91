package mw

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmarks/internal/auth"
	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"marks.example.com", "marks.example.com", true},
		{"marks.example.com:8080", "marks.example.com", true},
		{"marks.example.com:8080", "marks.example.com:9090", false},
		{"MARKS.example.com", "marks.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil.com", "marks.example.com", false},
		{"marks.example.com:8080", "marks.example.com:8080", true},
		{"a.example.com:443", "*.example.com", true},
		{"evilexample.com", "*.example.com", false},
		{"marks.example.com", " ", false},
	}

	for _, tt := range tests {
		t.Run(tt.host+"~"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, matchHost(tt.host, tt.pattern))
		})
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"marks.example.com"}, logger.New("error", false))(ok)

	req := httptest.NewRequest(http.MethodGet, "http://marks.example.com/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "http://other.example.com/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		now:               func() time.Time { return now },
		Exempt:            func(r *http.Request) bool { return r.URL.Path == "/healthz" },
	})(ok)

	hit := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, hit("/").Code)
	assert.Equal(t, http.StatusOK, hit("/").Code)

	limited := hit("/")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, hit("/healthz").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, hit("/").Code)
}

func TestAllowOnlyCIDRs(t *testing.T) {
	log := logger.New("error", false)

	open := AllowOnlyCIDRs(nil, false, log)(ok)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	closed := AllowOnlyCIDRs([]string{"10.0.0.0/8"}, true, log)(ok)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.9.9.9, 192.0.2.1")
	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func newAuth(t *testing.T) *auth.Service {
	t.Helper()
	sessions, err := auth.NewSessions([]byte("0123456789abcdef"), time.Hour, nil)
	require.NoError(t, err)
	return auth.NewService(sessions, false)
}

func TestRequireUser(t *testing.T) {
	svc := newAuth(t)
	log := logger.New("error", false)

	var seen domain.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.UserFrom(r.Context())
	})

	page := RequirePageUser(svc, log)(inner)
	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	api := RequireAPIUser(svc, log)(inner)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := svc.Sessions().Issue(domain.User{ID: "u1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.ID)
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestLogKeepsHijacker(t *testing.T) {
	h := Log(logger.Nop(), false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		_, _, _ = hj.Hijack()
	}))

	rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	assert.True(t, rec.hijacked)
}

func TestLogUsesRoutePattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	log := logger.New("debug", false, logger.WithFile(path))

	r := chi.NewRouter()
	r.Use(Log(log, false))
	r.Get("/api/bookmarks/{id}", ok)
	r.Get("/healthz", ok)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/bookmarks/b-42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"route":"/api/bookmarks/{id}"`)
	assert.NotContains(t, out, "b-42")
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"client_ip":"192.0.2.1"`)
}
