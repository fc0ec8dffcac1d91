// Package client talks to a smartmarks server and keeps a live,
// reconciled view of the signed-in user's bookmarks.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/feed"
)

// Backend is the server as seen by a Session.
type Backend interface {
	List(ctx context.Context) ([]domain.Bookmark, error)
	Add(ctx context.Context, url, title string) (domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
	Subscribe(ctx context.Context) (feed.Subscription, error)
}

// API is the HTTP client for the JSON API.
type API struct {
	base  *url.URL
	token string
	http  *http.Client
}

var _ Backend = (*API)(nil)

// NewAPI creates a client for the server at baseURL using a session token.
func NewAPI(baseURL, token string, httpClient *http.Client) (*API, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{base: u, token: token, http: httpClient}, nil
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// Me returns the signed-in user.
func (a *API) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := a.do(ctx, "get current user", http.MethodGet, "/api/me", nil, &u)
	return u, err
}

func (a *API) List(ctx context.Context) ([]domain.Bookmark, error) {
	var list []domain.Bookmark
	if err := a.do(ctx, "list bookmarks", http.MethodGet, "/api/bookmarks", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Bookmark{}
	}
	return list, nil
}

func (a *API) Add(ctx context.Context, rawURL, title string) (domain.Bookmark, error) {
	var b domain.Bookmark
	body := map[string]string{"url": rawURL}
	if title != "" {
		body["title"] = title
	}
	err := a.do(ctx, "add bookmark", http.MethodPost, "/api/bookmarks", body, &b)
	return b, err
}

func (a *API) Delete(ctx context.Context, id string) error {
	return a.do(ctx, "delete bookmark", http.MethodDelete, "/api/bookmarks/"+url.PathEscape(id), nil, nil)
}

func (a *API) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return domain.NewBackendError(op, err)
	}
	defer resp.Body.Close()

	if err := classify(op, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewBackendError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// classify maps a response status back to the error taxonomy.
func classify(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var e apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrAuthRequired
	case http.StatusUnprocessableEntity:
		reason := e.Error
		if reason == "" {
			reason = "invalid input"
		}
		return &domain.ValidationError{Field: e.Field, Reason: reason}
	default:
		return &domain.BackendError{Op: op, Err: fmt.Errorf("server returned %s", resp.Status)}
	}
}

// Subscribe opens the websocket change feed.
func (a *API) Subscribe(ctx context.Context) (feed.Subscription, error) {
	wsURL := *a.base
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = strings.TrimSuffix(wsURL.Path, "/") + "/api/feed"

	header := http.Header{}
	if a.token != "" {
		header.Set("Authorization", "Bearer "+a.token)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL.String(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, domain.ErrAuthRequired
		}
		return nil, domain.NewBackendError("subscribe to feed", err)
	}

	s := &wsSubscription{
		conn: conn,
		ch:   make(chan domain.Event, feed.DefaultBuffer),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.readLoop(ctx)
	return s, nil
}

// wsSubscription ends when Close is called, the server goes away or the
// Subscribe context is done.
type wsSubscription struct {
	conn *websocket.Conn
	ch   chan domain.Event
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *wsSubscription) Events() <-chan domain.Event { return s.ch }

func (s *wsSubscription) Close() {
	s.once.Do(func() {
		close(s.stop)
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
		<-s.done
	})
}

func (s *wsSubscription) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.ch)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			if !errors.As(err, &ce) {
				_ = s.conn.CloseNow()
			}
			return
		}
		var ev domain.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		select {
		case s.ch <- ev:
		case <-s.stop:
			return
		case <-ctx.Done():
			_ = s.conn.CloseNow()
			return
		}
	}
}
