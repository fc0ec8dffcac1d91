package homepage

import (
	"sort"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// Draft is a bookmark ready to be submitted. URL and Title are normalized.
type Draft struct {
	URL   string
	Title string
	Group string
}

func fromBookmarks(f BookmarksFile) []Draft {
	var c collector
	for _, group := range f {
		for _, groupName := range sortedKeys(group) {
			for _, item := range group[groupName] {
				for _, name := range sortedKeys(item) {
					entries := item[name]
					if len(entries) == 0 {
						continue
					}
					c.add(entries[0].Href, name, groupName)
				}
			}
		}
	}
	return c.drafts
}

func fromServices(f ServicesFile) []Draft {
	var c collector
	for _, group := range f {
		for _, groupName := range sortedKeys(group) {
			for _, item := range group[groupName] {
				for _, name := range sortedKeys(item) {
					c.add(item[name].Href, name, groupName)
				}
			}
		}
	}
	return c.drafts
}

// collector keeps the first draft per normalized URL and drops entries
// that would not pass server-side validation.
type collector struct {
	seen   map[string]struct{}
	drafts []Draft
}

func (c *collector) add(href, title, group string) {
	url, title, err := domain.PrepareBookmark(href, title)
	if err != nil {
		return
	}
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, dup := c.seen[url]; dup {
		return
	}
	c.seen[url] = struct{}{}
	c.drafts = append(c.drafts, Draft{URL: url, Title: title, Group: group})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
