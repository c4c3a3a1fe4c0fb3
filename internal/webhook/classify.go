// internal/webhook/classify.go
package webhook

import (
	"sort"

	"github.com/google/go-github/v62/github"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
	"github.com/sussybocca/botforge-sync/internal/model"
)

// Classify parses a verified webhook body into a typed event.
//
// Push events yield the repository full name, the commit count, and the
// union of added, modified, and removed paths across all commits. Any
// other event type is valid but inert: kind "other", no paths, no error.
// A push body that does not parse is a validation error.
func Classify(body []byte, eventType string) (model.InboundEvent, error) {
	if eventType != "push" {
		return model.InboundEvent{Kind: model.KindOther}, nil
	}

	raw, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return model.InboundEvent{}, apperr.Validationf("malformed push payload: %v", err)
	}
	push, ok := raw.(*github.PushEvent)
	if !ok {
		return model.InboundEvent{}, apperr.Validationf("unexpected payload type %T for push event", raw)
	}

	seen := make(map[string]struct{})
	for _, commit := range push.Commits {
		for _, p := range commit.Added {
			seen[p] = struct{}{}
		}
		for _, p := range commit.Modified {
			seen[p] = struct{}{}
		}
		for _, p := range commit.Removed {
			seen[p] = struct{}{}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	return model.InboundEvent{
		RepoName:     push.GetRepo().GetFullName(),
		Kind:         model.KindPush,
		ChangedPaths: paths,
		CommitCount:  len(push.Commits),
	}, nil
}
