// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second

	committerName  = "BotForge Studio"
	committerEmail = "bot@botforge.dev"
)

// Outcome is the result of a conditional file push.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeConflict Outcome = "conflict"
)

// PushResult carries the outcome of PushFile and, on success, the SHA of
// the commit it produced.
type PushResult struct {
	Outcome   Outcome `json:"outcome"`
	CommitSHA string  `json:"commit_sha,omitempty"`
}

// Client is a wrapper around the go-github client. It holds no credentials;
// the delegated token is a capability passed to each call.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		gh:     github.NewClient(nil),
		logger: logger,
	}
}

// withToken derives an authenticated client for one call, keeping the base
// URL of the underlying client (tests point it at a local server).
func (c *Client) withToken(ctx context.Context, token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	gh := github.NewClient(oauth2.NewClient(ctx, ts))
	gh.BaseURL = c.gh.BaseURL
	gh.UploadURL = c.gh.UploadURL
	return gh
}

// PushFile writes content to path in the given repository as a single
// commit, conditioned on the file's current SHA: it reads the file first
// and sends that SHA with the write, so a file that changed between read
// and write comes back as OutcomeConflict rather than being overwritten.
func (c *Client) PushFile(ctx context.Context, token, repoName, path, content, message string) (PushResult, error) {
	owner, repo, err := SplitRepoName(repoName)
	if err != nil {
		return PushResult{}, err
	}
	gh := c.withToken(ctx, token)
	logger := c.logger.With("owner", owner, "repo", repo, "path", path)

	sha, err := c.currentFileSHA(ctx, gh, owner, repo, path)
	if err != nil {
		return PushResult{}, err
	}

	if message == "" {
		message = "Update Discord bot code"
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		SHA:     sha,
		Committer: &github.CommitAuthor{
			Name:  github.String(committerName),
			Email: github.String(committerEmail),
		},
	}

	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var resp *github.RepositoryContentResponse
	if sha == nil {
		logger.Debug("creating file")
		resp, _, err = gh.Repositories.CreateFile(wctx, owner, repo, path, opts)
	} else {
		logger.Debug("updating file", "base_sha", *sha)
		resp, _, err = gh.Repositories.UpdateFile(wctx, owner, repo, path, opts)
	}
	if err != nil {
		return PushResult{}, translateError(err, "write "+path)
	}

	outcome := OutcomeUpdated
	if sha == nil {
		outcome = OutcomeCreated
	}
	return PushResult{Outcome: outcome, CommitSHA: resp.Commit.GetSHA()}, nil
}

// currentFileSHA returns the blob SHA of path, or nil if the file does not
// exist yet.
func (c *Client) currentFileSHA(ctx context.Context, gh *github.Client, owner, repo, path string) (*string, error) {
	rctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	file, _, resp, err := gh.Repositories.GetContents(rctx, owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, translateError(err, "read "+path)
	}
	if file == nil {
		return nil, apperr.Validationf("%s is a directory, not a file", path)
	}
	return file.SHA, nil
}

// translateError maps go-github errors onto the service error taxonomy.
func translateError(err error, op string) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.Authf("%s rejected by GitHub", op)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			// Stale SHA: the remote file changed between read and write.
			return apperr.Conflictf("%s: remote file changed", op)
		}
	}
	return apperr.Transientf("%s: %v", op, err)
}

// SplitRepoName parses an 'owner/name' repository identity.
func SplitRepoName(repoName string) (owner, repo string, err error) {
	parts := strings.Split(repoName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &apperr.ErrInvalidRepoFormat{Repo: repoName}
	}
	return parts[0], parts[1], nil
}
