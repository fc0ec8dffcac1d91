package homepage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookmarksYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go docs:
        - abbr: GO
          href: pkg.go.dev
- Social:
    - Reddit:
        - abbr: RE
          href: https://reddit.com/
    - Duplicate:
        - href: https://github.com/
    - Secret:
        - href: {{HOMEPAGE_VAR_SECRET_URL}}
`

const servicesYAML = `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: https://adguard.domain.ext
        description: Network-wide ads & trackers blocking DNS server
        widget:
          type: adguard
    - No link:
        icon: x.svg
- Media:
    - Jellyfin:
        href: https://jellyfin.domain.ext
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBookmarks(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", bookmarksYAML)

	drafts, err := Load(path, DetectKind(path))
	require.NoError(t, err)

	assert.Equal(t, []Draft{
		{URL: "https://github.com/", Title: "Github", Group: "Developer"},
		{URL: "https://pkg.go.dev", Title: "Go docs", Group: "Developer"},
		{URL: "https://reddit.com/", Title: "Reddit", Group: "Social"},
	}, drafts)
}

func TestLoadServices(t *testing.T) {
	path := writeFile(t, "services.yaml", servicesYAML)
	require.Equal(t, KindServices, DetectKind(path))

	drafts, err := Load(path, KindServices)
	require.NoError(t, err)

	assert.Equal(t, []Draft{
		{URL: "https://adguard.domain.ext", Title: "AdGuard Home", Group: "Infrastructure"},
		{URL: "https://jellyfin.domain.ext", Title: "Jellyfin", Group: "Media"},
	}, drafts)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/bookmarks.yaml", KindBookmarks)
	assert.Error(t, err)

	_, err = Parse([]byte("- [unclosed"), KindBookmarks)
	assert.Error(t, err)

	_, err = Parse([]byte("[]"), Kind("widgets"))
	assert.Error(t, err)
}

func TestEmptyFileHasNoDrafts(t *testing.T) {
	drafts, err := Parse([]byte("---\n"), KindServices)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindServices, DetectKind("/config/Services.yml"))
	assert.Equal(t, KindBookmarks, DetectKind("/config/bookmarks.yaml"))
	assert.Equal(t, KindBookmarks, DetectKind("links.yaml"))
}

func TestStripTemplateVariables(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"single template variable", "url: {{HOMEPAGE_VAR_URL}}", `url: ""`},
		{"no template variables", "plain text", "plain text"},
		{"two variables", "{{A}} and {{B}}", `"" and ""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(stripTemplateVariables([]byte(tt.input))))
		})
	}
}
