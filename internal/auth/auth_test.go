package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

var alice = domain.User{ID: "dev:alice@example.com", Email: "alice@example.com", Name: "alice"}

func newSessions(t *testing.T, rev Revoker) *Sessions {
	t.Helper()
	s, err := NewSessions([]byte("test-secret"), time.Hour, rev)
	require.NoError(t, err)
	return s
}

func TestNewSessionsRejectsBadConfig(t *testing.T) {
	_, err := NewSessions(nil, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewSessions([]byte("x"), 0, nil)
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	s := newSessions(t, NewMemoryRevoker())
	token, expires, err := s.Issue(alice)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := s.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.User())
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejects(t *testing.T) {
	s := newSessions(t, nil)
	good, _, err := s.Issue(alice)
	require.NoError(t, err)

	other, err := NewSessions([]byte("other-secret"), time.Hour, nil)
	require.NoError(t, err)
	foreign, _, err := other.Issue(alice)
	require.NoError(t, err)

	expired := newSessions(t, nil).WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	old, _, err := expired.Issue(alice)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered", good + "x"},
		{"wrong secret", foreign},
		{"expired", old},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, domain.ErrAuthRequired)
		})
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	revokers := map[string]Revoker{
		"memory": NewMemoryRevoker(),
		"redis":  NewRedisRevoker(client),
	}

	for name, rev := range revokers {
		t.Run(name, func(t *testing.T) {
			s := newSessions(t, rev)
			ctx := context.Background()

			token, _, err := s.Issue(alice)
			require.NoError(t, err)
			keep, _, err := s.Issue(alice)
			require.NoError(t, err)

			require.NoError(t, s.Revoke(ctx, token))

			_, err = s.Verify(ctx, token)
			assert.ErrorIs(t, err, domain.ErrAuthRequired)

			_, err = s.Verify(ctx, keep)
			assert.NoError(t, err)

			assert.NoError(t, s.Revoke(ctx, "garbage"))
		})
	}
}

func TestRedisRevokerSetsExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := NewRedisRevoker(client)
	require.NoError(t, r.Revoke(context.Background(), "jti", time.Now().Add(time.Minute)))

	ttl := mr.TTL(KeyPrefixRevoked + "jti")
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl = %v", ttl)

	mr.FastForward(2 * time.Minute)
	revoked, err := r.IsRevoked(context.Background(), "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationBackendFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := newSessions(t, NewRedisRevoker(client))
	token, _, err := s.Issue(alice)
	require.NoError(t, err)

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = s.Verify(ctx, token)
	assert.True(t, domain.IsBackend(err), "got %v", err)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(r))
}

func TestUserContext(t *testing.T) {
	_, ok := UserFrom(context.Background())
	assert.False(t, ok)

	u, ok := UserFrom(WithUser(context.Background(), alice))
	assert.True(t, ok)
	assert.Equal(t, alice, u)
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestDevSignInFlow(t *testing.T) {
	sessions := newSessions(t, NewMemoryRevoker())
	svc := NewService(sessions, false, NewDevProvider("http://localhost/auth/callback", "alice@example.com"))
	assert.Equal(t, []string{"dev"}, svc.Providers())

	rec := httptest.NewRecorder()
	target, err := svc.SignIn(rec, "dev")
	require.NoError(t, err)
	state := cookieFrom(t, rec, StateCookie)

	cb := httptest.NewRequest(http.MethodGet, strings.TrimPrefix(target, "http://localhost"), nil)
	cb.AddCookie(state)
	rec = httptest.NewRecorder()
	u, err := svc.Callback(rec, cb)
	require.NoError(t, err)
	assert.Equal(t, alice, u)

	session := cookieFrom(t, rec, SessionCookie)
	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(session)
	got, err := svc.CurrentUser(req)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	rec = httptest.NewRecorder()
	require.NoError(t, svc.SignOut(rec, req))
	_, err = svc.CurrentUser(req)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestCallbackRejectsForeignState(t *testing.T) {
	svc := NewService(newSessions(t, nil), false, NewDevProvider("http://localhost/auth/callback", "a@b.c"))

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state=dev:forged&code=dev", nil)
	_, err := svc.Callback(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrStateMismatch)

	req.AddCookie(&http.Cookie{Name: StateCookie, Value: "dev:other"})
	_, err = svc.Callback(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestSignInUnknownProvider(t *testing.T) {
	svc := NewService(newSessions(t, nil), false)
	_, err := svc.SignIn(httptest.NewRecorder(), "github")
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestGoogleProviderExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(googleUserInfo{Sub: "42", Email: "g@example.com", Name: "G"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewGoogleProvider("id", "secret", "http://localhost/auth/callback").
		WithEndpoints(oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}, srv.URL+"/userinfo")

	authURL, err := url.Parse(p.AuthCodeURL("google:state"))
	require.NoError(t, err)
	assert.Equal(t, "google:state", authURL.Query().Get("state"))
	assert.Contains(t, authURL.Query().Get("scope"), "email")

	u, err := p.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, domain.User{ID: "google:42", Email: "g@example.com", Name: "G"}, u)
}
