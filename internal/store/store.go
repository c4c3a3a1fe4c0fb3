// internal/store/store.go
package store

import (
	"context"
	"time"

	"github.com/sussybocca/botforge-sync/internal/model"
)

// Store is the durable state behind the sync subsystem: repository links
// with their sync metadata, and bot artifacts. It is the only shared
// mutable resource; everything else in the service is stateless per request.
type Store interface {
	// RecordSync upserts sync metadata for a repository. Writes for the
	// same repository serialize on the row; a write whose timestamp
	// precedes the stored last_sync_at is ignored and the stored state is
	// returned unchanged. Re-applying an identical
	// (repo, commitCount, syncedAt) tuple is a no-op.
	RecordSync(ctx context.Context, repoName string, commitCount int, syncedAt time.Time) (model.RepoLink, error)

	GetLink(ctx context.Context, repoName string) (model.RepoLink, error)

	// GetLinkedBot returns the bot linked to a repository, if any.
	// A missing link or an unlinked repository is not an error.
	GetLinkedBot(ctx context.Context, repoName string) (string, bool, error)

	// LinkRepository links a repository to a bot. Idempotent: re-linking
	// to the same bot is a no-op; re-linking to a different bot overwrites
	// and is logged as notable.
	LinkRepository(ctx context.Context, repoName, botID string) (model.RepoLink, error)

	// UnlinkRepository removes the repository link. The bot survives.
	UnlinkRepository(ctx context.Context, repoName string) error

	ListLinks(ctx context.Context) ([]model.RepoLink, error)

	Stats(ctx context.Context) (model.Stats, error)

	CreateBot(ctx context.Context, name, sourceCode string) (model.Bot, error)
	GetBot(ctx context.Context, id string) (model.Bot, error)
	ListBots(ctx context.Context) ([]model.Bot, error)

	// UpdateBotSource replaces a bot's source code conditioned on
	// expectedVersion (optimistic concurrency). A stale version yields
	// ErrConflict; saving unchanged code is a no-op that keeps the version.
	UpdateBotSource(ctx context.Context, id, sourceCode, expectedVersion string) (model.Bot, error)

	DeleteBot(ctx context.Context, id string) error
}
