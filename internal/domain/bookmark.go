package domain

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Bookmark is a single saved URL owned by one user.
//
// Lists of bookmarks are always ordered by CreatedAt, newest first.
type Bookmark struct {
	// ID is the opaque identifier assigned by the store.
	ID string `json:"id"`

	// UserID is the owner. Every store operation is scoped to it.
	UserID string `json:"user_id"`

	// URL is the normalized URL (always carries a scheme).
	URL string `json:"url"`

	// Title is optional. Empty means "no title".
	Title string `json:"title,omitempty"`

	// CreatedAt is assigned by the store and drives ordering.
	CreatedAt time.Time `json:"created_at"`
}

// Label is what gets displayed for the bookmark: its title, or the URL
// when there is no title.
func (b Bookmark) Label() string {
	if strings.TrimSpace(b.Title) != "" {
		return b.Title
	}
	return b.URL
}

// NormalizeURL trims raw input and prefixes https:// when no http(s)
// scheme is present. Empty input yields "".
func NormalizeURL(raw string) string {
	t := strings.TrimSpace(raw)
	if t == "" {
		return ""
	}
	lower := strings.ToLower(t)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "https://" + t
	}
	return t
}

// NormalizeTitle trims the title and puts it in NFC form.
func NormalizeTitle(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// ValidateURL checks a normalized URL: non-empty, parseable, with a host.
func ValidateURL(u string) error {
	if u == "" {
		return &ValidationError{Field: "url", Reason: "URL required"}
	}
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return &ValidationError{Field: "url", Reason: "URL is not valid"}
	}
	return nil
}

// PrepareBookmark normalizes and validates form input.
// It returns the normalized url and title.
func PrepareBookmark(rawURL, rawTitle string) (string, string, error) {
	u := NormalizeURL(rawURL)
	if err := ValidateURL(u); err != nil {
		return "", "", err
	}
	return u, NormalizeTitle(rawTitle), nil
}
