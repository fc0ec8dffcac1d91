// Package homepage reads the YAML files of a Homepage dashboard
// (gethomepage.dev) and turns their links into bookmarks to import.
package homepage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects which Homepage file layout to parse.
type Kind string

const (
	KindBookmarks Kind = "bookmarks"
	KindServices  Kind = "services"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// DetectKind guesses the layout from the file name. Anything that is not
// services.yaml is read as bookmarks.
func DetectKind(path string) Kind {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasPrefix(base, "services.") {
		return KindServices
	}
	return KindBookmarks
}

// Load reads path and returns the import drafts it contains.
func Load(path string, kind Kind) ([]Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data, kind)
}

// Parse decodes data in the given layout.
func Parse(data []byte, kind Kind) ([]Draft, error) {
	data = stripTemplateVariables(data)

	switch kind {
	case KindBookmarks:
		var f BookmarksFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
		}
		return fromBookmarks(f), nil
	case KindServices:
		var f ServicesFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse services yaml: %w", err)
		}
		return fromServices(f), nil
	default:
		return nil, fmt.Errorf("unknown homepage file kind %q", kind)
	}
}

// stripTemplateVariables blanks Homepage {{HOMEPAGE_VAR_...}} placeholders.
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
