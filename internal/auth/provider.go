package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Provider is an external identity source using the authorization code flow.
type Provider interface {
	Name() string
	// AuthCodeURL is where the browser goes to sign in.
	AuthCodeURL(state string) string
	// Exchange turns the callback code into an identity.
	Exchange(ctx context.Context, code string) (domain.User, error)
}

// Google endpoints.
var (
	GoogleEndpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.google.com/o/oauth2/auth",
		TokenURL:  "https://oauth2.googleapis.com/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleProvider signs users in with their Google account.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider configures the flow. redirectURL is this server's
// callback, e.g. https://marks.example.com/auth/callback.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     GoogleEndpoint,
		},
		userInfoURL: GoogleUserInfoURL,
	}
}

// WithEndpoints points the provider at other OAuth servers.
func (g *GoogleProvider) WithEndpoints(endpoint oauth2.Endpoint, userInfoURL string) *GoogleProvider {
	g.config.Endpoint = endpoint
	g.userInfoURL = userInfoURL
	return g
}

func (g *GoogleProvider) Name() string { return "google" }

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *GoogleProvider) Exchange(ctx context.Context, code string) (domain.User, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := g.config.Client(ctx, tok).Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.User{}, fmt.Errorf("userinfo returned %s", resp.Status)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.User{}, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return domain.User{}, errors.New("userinfo has no subject")
	}

	return domain.User{
		ID:    "google:" + info.Sub,
		Email: info.Email,
		Name:  info.Name,
	}, nil
}

// DevProvider signs in a fixed identity without leaving the server. It is
// meant for local development only.
type DevProvider struct {
	callbackURL string
	email       string
}

func NewDevProvider(callbackURL, email string) *DevProvider {
	return &DevProvider{callbackURL: callbackURL, email: email}
}

func (d *DevProvider) Name() string { return "dev" }

func (d *DevProvider) AuthCodeURL(state string) string {
	q := url.Values{"state": {state}, "code": {"dev"}}
	return d.callbackURL + "?" + q.Encode()
}

func (d *DevProvider) Exchange(_ context.Context, code string) (domain.User, error) {
	if code != "dev" {
		return domain.User{}, errors.New("unexpected dev code")
	}
	name, _, _ := strings.Cut(d.email, "@")
	return domain.User{
		ID:    "dev:" + d.email,
		Email: d.email,
		Name:  name,
	}, nil
}
