package homepage

// Both Homepage files are lists of single-key maps, so the group and entry
// names live in map keys.

// BookmarkEntry is one link in bookmarks.yaml.
type BookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// BookmarksFile is bookmarks.yaml:
//
//	- Group:
//	    - Name:
//	        - abbr: XX
//	          href: https://...
type BookmarksFile []map[string][]map[string][]BookmarkEntry

// ServiceEntry is one service in services.yaml. Only the fields used for
// importing are decoded.
type ServiceEntry struct {
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
}

// ServicesFile is services.yaml:
//
//	- Group:
//	    - Name:
//	        href: https://...
type ServicesFile []map[string][]map[string]ServiceEntry
