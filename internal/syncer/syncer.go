// internal/syncer/syncer.go
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sussybocca/botforge-sync/internal/deploy"
	"github.com/sussybocca/botforge-sync/internal/model"
)

// SyncStore is the slice of the store this pipeline needs.
type SyncStore interface {
	RecordSync(ctx context.Context, repoName string, commitCount int, syncedAt time.Time) (model.RepoLink, error)
	GetLinkedBot(ctx context.Context, repoName string) (string, bool, error)
}

// RedeployTrigger emits deploy intents for linked bots.
type RedeployTrigger interface {
	MaybeTrigger(ctx context.Context, repoName, botID, reason string) deploy.Outcome
}

// RelevanceFilter decides whether changed paths touch bot code.
type RelevanceFilter interface {
	IsRelevant(paths []string) bool
}

// Result is the terminal state of one processed push event.
type Result struct {
	Outcome deploy.Outcome
	Link    model.RepoLink
}

// Service reconciles verified push events against the sync state store:
// record the sync, then decide whether a redeploy intent should fire.
type Service struct {
	store   SyncStore
	filter  RelevanceFilter
	trigger RedeployTrigger
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new Service instance.
func NewService(store SyncStore, filter RelevanceFilter, trigger RedeployTrigger, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		filter:  filter,
		trigger: trigger,
		logger:  logger,
		now:     time.Now,
	}
}

// ProcessPush handles one verified push event.
//
// The sync is recorded for every push, relevant or not, so commit counts
// and last-sync times stay current. The redeploy trigger only runs after
// the record is durable; a store failure aborts before it so the caller
// can refuse the delivery and let the sender's retry policy govern.
func (s *Service) ProcessPush(ctx context.Context, ev model.InboundEvent) (Result, error) {
	logger := s.logger.With("repo", ev.RepoName, "commits", ev.CommitCount)
	logger.Info("Processing push event", "changed_paths", len(ev.ChangedPaths))

	link, err := s.store.RecordSync(ctx, ev.RepoName, ev.CommitCount, s.now().UTC())
	if err != nil {
		return Result{}, fmt.Errorf("record sync: %w", err)
	}

	if !s.filter.IsRelevant(ev.ChangedPaths) {
		logger.Debug("No bot-relevant paths changed")
		return Result{Outcome: deploy.SkippedNotRelevant, Link: link}, nil
	}

	botID, _, err := s.store.GetLinkedBot(ctx, ev.RepoName)
	if err != nil {
		return Result{}, fmt.Errorf("look up linked bot: %w", err)
	}

	outcome := s.trigger.MaybeTrigger(ctx, ev.RepoName, botID, "push")
	return Result{Outcome: outcome, Link: link}, nil
}
