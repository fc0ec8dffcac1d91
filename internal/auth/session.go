// Package auth issues and verifies session tokens and runs the external
// sign-in flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// SessionCookie carries the session token in browsers.
const SessionCookie = "smartmarks_session"

const issuer = "smartmarks"

// Claims is the session token payload. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Sessions signs HS256 session tokens and checks them against a Revoker.
type Sessions struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewSessions creates a token issuer. secret must not be empty.
func NewSessions(secret []byte, ttl time.Duration, revoker Revoker) (*Sessions, error) {
	if len(secret) == 0 {
		return nil, errors.New("session secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be > 0, got %v", ttl)
	}
	return &Sessions{
		secret:  secret,
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}, nil
}

// WithClock overrides the time source used for issuing and validation.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

// TTL is the lifetime of issued tokens.
func (s *Sessions) TTL() time.Duration { return s.ttl }

// Issue signs a token for u.
func (s *Sessions) Issue(u domain.User) (string, time.Time, error) {
	if u.ID == "" {
		return "", time.Time{}, errors.New("cannot issue a session without user id")
	}

	now := s.now()
	expires := now.Add(s.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	})

	token, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Verify parses token and returns its claims. Any invalid, expired or
// revoked token yields domain.ErrAuthRequired.
func (s *Sessions) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, domain.NewBackendError("check session revocation", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: session revoked", domain.ErrAuthRequired)
		}
	}
	return claims, nil
}

// Revoke invalidates token until it would have expired anyway. Invalid
// tokens are ignored.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if s.revoker == nil {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return domain.NewBackendError("revoke session", err)
	}
	return nil
}

func (s *Sessions) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, domain.ErrAuthRequired
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthRequired, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: invalid session", domain.ErrAuthRequired)
	}
	return claims, nil
}

// User converts claims to the signed-in identity.
func (c *Claims) User() domain.User {
	return domain.User{ID: c.Subject, Email: c.Email, Name: c.Name}
}

// TokenFromRequest returns the bearer token or, failing that, the session
// cookie value.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}
