package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// StateCookie holds "<provider>:<nonce>" between sign-in and callback.
const StateCookie = "smartmarks_oauth_state"

const stateTTL = 10 * time.Minute

var (
	// ErrUnknownProvider is returned for a provider that is not configured.
	ErrUnknownProvider = errors.New("unknown sign-in provider")
	// ErrStateMismatch means the callback does not belong to a sign-in
	// started by this browser.
	ErrStateMismatch = errors.New("sign-in state mismatch")
)

// Service ties sessions and providers to HTTP requests.
type Service struct {
	sessions      *Sessions
	providers     map[string]Provider
	order         []string
	secureCookies bool
}

// NewService registers providers in order; the first is the default.
func NewService(sessions *Sessions, secureCookies bool, providers ...Provider) *Service {
	s := &Service{
		sessions:      sessions,
		providers:     make(map[string]Provider, len(providers)),
		secureCookies: secureCookies,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
		s.order = append(s.order, p.Name())
	}
	return s
}

// Sessions exposes the token issuer.
func (s *Service) Sessions() *Sessions { return s.sessions }

// Providers returns configured provider names, default first.
func (s *Service) Providers() []string {
	return append([]string(nil), s.order...)
}

// CurrentUser returns the identity of the request's session or
// domain.ErrAuthRequired.
func (s *Service) CurrentUser(r *http.Request) (domain.User, error) {
	claims, err := s.sessions.Verify(r.Context(), TokenFromRequest(r))
	if err != nil {
		return domain.User{}, err
	}
	return claims.User(), nil
}

// SignIn starts the flow for provider and returns the URL to redirect to.
func (s *Service) SignIn(w http.ResponseWriter, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	state := provider + ":" + ulid.Make().String()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return p.AuthCodeURL(state), nil
}

// Callback completes the flow, sets the session cookie and returns the
// signed-in user.
func (s *Service) Callback(w http.ResponseWriter, r *http.Request) (domain.User, error) {
	c, err := r.Cookie(StateCookie)
	http.SetCookie(w, &http.Cookie{Name: StateCookie, Path: "/auth", MaxAge: -1})
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		return domain.User{}, ErrStateMismatch
	}

	provider, _, _ := strings.Cut(c.Value, ":")
	p, ok := s.providers[provider]
	if !ok {
		return domain.User{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return domain.User{}, errors.New("sign-in was cancelled")
	}

	u, err := p.Exchange(r.Context(), code)
	if err != nil {
		return domain.User{}, err
	}

	token, expires, err := s.sessions.Issue(u)
	if err != nil {
		return domain.User{}, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return u, nil
}

// SignOut revokes the request's session and clears the cookie.
func (s *Service) SignOut(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return s.sessions.Revoke(r.Context(), TokenFromRequest(r))
}
