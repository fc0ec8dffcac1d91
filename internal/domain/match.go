package domain

import (
	"net/url"
	"sort"
	"strings"
)

// Match scores, highest wins.
const (
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0
	ScorePositionBonus  = 10.0
)

// Candidate is a bookmark with its match score.
type Candidate struct {
	Bookmark Bookmark
	Score    float64
}

// ScoreBookmark scores a bookmark against a free-text query. The title
// and the URL host are both tried; the best score is kept.
func ScoreBookmark(query string, b Bookmark) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0.0
	}

	best := 0.0
	for _, target := range matchTargets(b) {
		if s := scoreText(query, target); s > best {
			best = s
		}
	}
	return best
}

func matchTargets(b Bookmark) []string {
	targets := make([]string, 0, 2)
	if b.Title != "" {
		targets = append(targets, strings.ToLower(b.Title))
	}
	if u, err := url.Parse(b.URL); err == nil && u.Host != "" {
		targets = append(targets, strings.TrimPrefix(strings.ToLower(u.Host), "www."))
	} else {
		targets = append(targets, strings.ToLower(b.URL))
	}
	return targets
}

func scoreText(query, target string) float64 {
	if target == "" {
		return 0.0
	}
	if query == target {
		return ScoreExactMatch
	}
	if strings.HasPrefix(target, query) {
		return ScorePrefixMatch
	}
	if idx := strings.Index(target, query); idx >= 0 {
		// earlier substring matches score higher
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(idx)/float64(len(target)))
	}

	words := strings.Fields(query)
	if len(words) > 1 {
		all := true
		for _, w := range words {
			if !strings.Contains(target, w) {
				all = false
				break
			}
		}
		if all {
			return ScoreFuzzyMatch
		}
	}

	if sim := similarity(query, target); sim > 0.5 {
		return ScoreFuzzyMatch * sim
	}
	return 0.0
}

// similarity is the ratio of query characters found in target.
func similarity(query, target string) float64 {
	if query == "" || target == "" {
		return 0.0
	}
	matches, total := 0, 0
	for _, c := range query {
		total++
		if strings.ContainsRune(target, c) {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

// RankBookmarks returns the bookmarks matching query, best first.
// Equal scores keep list order (newest first).
func RankBookmarks(query string, bookmarks []Bookmark) []Candidate {
	candidates := make([]Candidate, 0, len(bookmarks))
	for _, b := range bookmarks {
		if s := ScoreBookmark(query, b); s > 0 {
			candidates = append(candidates, Candidate{Bookmark: b, Score: s})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// FindBestBookmark returns the best match for query, if any.
func FindBestBookmark(query string, bookmarks []Bookmark) (Bookmark, bool) {
	candidates := RankBookmarks(query, bookmarks)
	if len(candidates) == 0 {
		return Bookmark{}, false
	}
	return candidates[0].Bookmark, true
}
