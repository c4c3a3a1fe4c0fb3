// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
	"github.com/sussybocca/botforge-sync/internal/model"
)

const linkColumns = "id, repo_name, bot_id, visibility, last_sync_at, commit_count, created_at, updated_at"

const botColumns = "id, name, source_code, source_version, status, created_at, updated_at"

// Postgres implements Store on a pgx connection pool. Per-repository write
// serialization comes from row-level locking in the upsert; nothing else
// holds in-process state.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// RecordSync upserts the sync metadata for a repository. The WHERE guard
// on the conflict arm ignores out-of-order writes (timestamp older than the
// stored last_sync_at) and makes identical re-applications no-ops; in both
// cases the stored row is returned unchanged.
func (p *Postgres) RecordSync(ctx context.Context, repoName string, commitCount int, syncedAt time.Time) (model.RepoLink, error) {
	const q = `
		INSERT INTO repo_links (repo_name, commit_count, last_sync_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (repo_name) DO UPDATE
		SET commit_count = EXCLUDED.commit_count,
		    last_sync_at = EXCLUDED.last_sync_at,
		    updated_at   = now()
		WHERE repo_links.last_sync_at IS NULL
		   OR repo_links.last_sync_at < EXCLUDED.last_sync_at
		   OR (repo_links.last_sync_at = EXCLUDED.last_sync_at
		       AND repo_links.commit_count IS DISTINCT FROM EXCLUDED.commit_count)
		RETURNING ` + linkColumns

	link, err := scanLink(p.pool.QueryRow(ctx, q, repoName, commitCount, syncedAt.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		// Write was coalesced; hand back the current state.
		p.logger.Debug("sync write coalesced", "repo", repoName, "timestamp", syncedAt)
		return p.GetLink(ctx, repoName)
	}
	if err != nil {
		return model.RepoLink{}, apperr.Transientf("record sync for %s: %v", repoName, err)
	}
	return link, nil
}

func (p *Postgres) GetLink(ctx context.Context, repoName string) (model.RepoLink, error) {
	const q = `SELECT ` + linkColumns + ` FROM repo_links WHERE repo_name = $1`

	link, err := scanLink(p.pool.QueryRow(ctx, q, repoName))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepoLink{}, apperr.ErrNotFound
	}
	if err != nil {
		return model.RepoLink{}, apperr.Transientf("get link for %s: %v", repoName, err)
	}
	return link, nil
}

func (p *Postgres) GetLinkedBot(ctx context.Context, repoName string) (string, bool, error) {
	link, err := p.GetLink(ctx, repoName)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !link.BotID.Valid {
		return "", false, nil
	}
	return link.BotID.String, true, nil
}

func (p *Postgres) LinkRepository(ctx context.Context, repoName, botID string) (model.RepoLink, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return model.RepoLink{}, apperr.Transientf("link repository %s: %v", repoName, err)
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	var current *string
	err = tx.QueryRow(ctx, `SELECT bot_id FROM repo_links WHERE repo_name = $1 FOR UPDATE`, repoName).Scan(&current)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.RepoLink{}, apperr.Transientf("link repository %s: %v", repoName, err)
	}
	if current != nil && *current == botID {
		// Re-linking to the same bot is a no-op.
		link, err := scanLink(tx.QueryRow(ctx, `SELECT `+linkColumns+` FROM repo_links WHERE repo_name = $1`, repoName))
		if err != nil {
			return model.RepoLink{}, apperr.Transientf("link repository %s: %v", repoName, err)
		}
		return link, tx.Commit(ctx)
	}
	if current != nil {
		p.logger.Warn("re-linking repository to a different bot",
			"repo", repoName, "previous_bot", *current, "bot", botID)
	}

	const q = `
		INSERT INTO repo_links (repo_name, bot_id)
		VALUES ($1, $2)
		ON CONFLICT (repo_name) DO UPDATE
		SET bot_id = EXCLUDED.bot_id, updated_at = now()
		RETURNING ` + linkColumns

	link, err := scanLink(tx.QueryRow(ctx, q, repoName, botID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key violation
			return model.RepoLink{}, apperr.Validationf("bot %s does not exist", botID)
		}
		return model.RepoLink{}, apperr.Transientf("link repository %s: %v", repoName, err)
	}
	return link, tx.Commit(ctx)
}

func (p *Postgres) UnlinkRepository(ctx context.Context, repoName string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM repo_links WHERE repo_name = $1`, repoName)
	if err != nil {
		return apperr.Transientf("unlink repository %s: %v", repoName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListLinks(ctx context.Context) ([]model.RepoLink, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+linkColumns+` FROM repo_links ORDER BY repo_name`)
	if err != nil {
		return nil, apperr.Transientf("list links: %v", err)
	}
	defer rows.Close()

	var links []model.RepoLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, apperr.Transientf("list links: %v", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transientf("list links: %v", err)
	}
	return links, nil
}

// Stats gathers the dashboard roll-up with the two aggregate queries
// running in parallel.
func (p *Postgres) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		const q = `
			SELECT count(*), count(bot_id), COALESCE(sum(commit_count), 0), max(last_sync_at)
			FROM repo_links`
		return p.pool.QueryRow(gctx, q).Scan(&stats.TotalRepos, &stats.LinkedRepos, &stats.TotalCommits, &stats.LastSyncAt)
	})
	g.Go(func() error {
		return p.pool.QueryRow(gctx, `SELECT count(*) FROM bots`).Scan(&stats.TotalBots)
	})

	if err := g.Wait(); err != nil {
		return model.Stats{}, apperr.Transientf("gather stats: %v", err)
	}
	return stats, nil
}

func (p *Postgres) CreateBot(ctx context.Context, name, sourceCode string) (model.Bot, error) {
	const q = `
		INSERT INTO bots (id, name, source_code, source_version)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + botColumns

	bot, err := scanBot(p.pool.QueryRow(ctx, q, uuid.NewString(), name, sourceCode, model.SourceVersion(sourceCode)))
	if err != nil {
		return model.Bot{}, apperr.Transientf("create bot %s: %v", name, err)
	}
	return bot, nil
}

func (p *Postgres) GetBot(ctx context.Context, id string) (model.Bot, error) {
	bot, err := scanBot(p.pool.QueryRow(ctx, `SELECT `+botColumns+` FROM bots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bot{}, apperr.ErrNotFound
	}
	if err != nil {
		return model.Bot{}, apperr.Transientf("get bot %s: %v", id, err)
	}
	return bot, nil
}

func (p *Postgres) ListBots(ctx context.Context) ([]model.Bot, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+botColumns+` FROM bots ORDER BY created_at`)
	if err != nil {
		return nil, apperr.Transientf("list bots: %v", err)
	}
	defer rows.Close()

	var bots []model.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, apperr.Transientf("list bots: %v", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transientf("list bots: %v", err)
	}
	return bots, nil
}

// UpdateBotSource performs the optimistic write: the UPDATE only matches
// while the stored version still equals expectedVersion. No matched row
// means either the bot is gone or the version went stale; the follow-up
// read tells the two apart.
func (p *Postgres) UpdateBotSource(ctx context.Context, id, sourceCode, expectedVersion string) (model.Bot, error) {
	const q = `
		UPDATE bots
		SET source_code = $2, source_version = $3, updated_at = now()
		WHERE id = $1 AND source_version = $4
		RETURNING ` + botColumns

	bot, err := scanBot(p.pool.QueryRow(ctx, q, id, sourceCode, model.SourceVersion(sourceCode), expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := p.GetBot(ctx, id); errors.Is(gerr, apperr.ErrNotFound) {
			return model.Bot{}, apperr.ErrNotFound
		}
		return model.Bot{}, apperr.Conflictf("bot %s source version is stale", id)
	}
	if err != nil {
		return model.Bot{}, apperr.Transientf("update bot %s source: %v", id, err)
	}
	return bot, nil
}

func (p *Postgres) DeleteBot(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM bots WHERE id = $1`, id)
	if err != nil {
		return apperr.Transientf("delete bot %s: %v", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanLink(row pgx.Row) (model.RepoLink, error) {
	var l model.RepoLink
	err := row.Scan(&l.ID, &l.RepoName, &l.BotID, &l.Visibility, &l.LastSyncAt, &l.CommitCount, &l.DBCreatedAt, &l.DBUpdatedAt)
	return l, err
}

func scanBot(row pgx.Row) (model.Bot, error) {
	var b model.Bot
	err := row.Scan(&b.ID, &b.Name, &b.SourceCode, &b.SourceVersion, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
