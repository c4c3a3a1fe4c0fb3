// internal/webhook/relevance.go
package webhook

import "strings"

// Default markers match the bot entry file and the directory the editor
// pushes into. Broad on purpose: a false positive costs one redundant
// sync, a false negative loses a real bot change.
var defaultMarkers = []string{"bot.js", "discord-bot"}

// RelevanceFilter decides whether a set of changed paths touches bot code.
type RelevanceFilter struct {
	markers []string
}

// NewRelevanceFilter builds a filter over the given marker substrings.
// An empty marker list falls back to the defaults.
func NewRelevanceFilter(markers []string) *RelevanceFilter {
	if len(markers) == 0 {
		markers = defaultMarkers
	}
	return &RelevanceFilter{markers: markers}
}

// IsRelevant reports whether any path contains any configured marker.
func (f *RelevanceFilter) IsRelevant(paths []string) bool {
	for _, p := range paths {
		for _, m := range f.markers {
			if strings.Contains(p, m) {
				return true
			}
		}
	}
	return false
}
