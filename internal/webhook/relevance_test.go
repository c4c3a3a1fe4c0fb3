// internal/webhook/relevance_test.go
package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelevanceFilter_Defaults(t *testing.T) {
	f := NewRelevanceFilter(nil)

	assert.True(t, f.IsRelevant([]string{"src/bot.js"}))
	assert.True(t, f.IsRelevant([]string{"discord-bot/config.json"}))
	assert.True(t, f.IsRelevant([]string{"readme.md", "nested/dir/bot.js"}))
	assert.False(t, f.IsRelevant([]string{"readme.md"}))
	assert.False(t, f.IsRelevant([]string{"docs/setup.md", "package.json"}))
	assert.False(t, f.IsRelevant(nil))
}

func TestRelevanceFilter_CustomMarkers(t *testing.T) {
	f := NewRelevanceFilter([]string{"handlers/"})

	assert.True(t, f.IsRelevant([]string{"handlers/ping.js"}))
	assert.False(t, f.IsRelevant([]string{"src/bot.js"}))
}

func TestRelevanceFilter_MonotonicInMarkerSet(t *testing.T) {
	paths := [][]string{
		{"src/bot.js"},
		{"discord-bot/index.js"},
		{"readme.md"},
		{"a/b/c.txt", "bot.js"},
	}
	base := NewRelevanceFilter([]string{"bot.js", "discord-bot"})
	wider := NewRelevanceFilter([]string{"bot.js", "discord-bot", "handlers/"})

	// Adding a marker never turns a relevant path set irrelevant.
	for _, p := range paths {
		if base.IsRelevant(p) {
			assert.True(t, wider.IsRelevant(p), "paths %v lost relevance after widening the marker set", p)
		}
	}
}
