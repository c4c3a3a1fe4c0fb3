// internal/github/client_test.go
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
)

// setupTestClient creates a httptest server and a client pointing to it.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := NewClient(logger)

	// Point the client's base URL at our test server.
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.gh.BaseURL = base
	client.gh.UploadURL = base

	return client, server
}

type contentPutBody struct {
	Message string  `json:"message"`
	Content string  `json:"content"`
	SHA     *string `json:"sha"`
}

func TestClient_PushFile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the file when it does not exist", func(t *testing.T) {
		var put contentPutBody
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/octocat/hello-world/contents/discord-bot/bot.js", r.URL.Path)
			switch r.Method {
			case http.MethodGet:
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprintln(w, `{"message": "Not Found"}`)
			case http.MethodPut:
				assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&put))
				w.WriteHeader(http.StatusCreated)
				fmt.Fprintln(w, `{"content": {"sha": "blob1"}, "commit": {"sha": "commit1"}}`)
			default:
				t.Fatalf("unexpected method %s", r.Method)
			}
		})
		client, _ := setupTestClient(t, handler)

		result, err := client.PushFile(ctx, "gh-token", "octocat/hello-world", "discord-bot/bot.js", "console.log('hi')", "Add bot")

		require.NoError(t, err)
		assert.Equal(t, OutcomeCreated, result.Outcome)
		assert.Equal(t, "commit1", result.CommitSHA)
		assert.Nil(t, put.SHA, "a create must not send a base SHA")
		assert.Equal(t, "Add bot", put.Message)
		decoded, err := base64.StdEncoding.DecodeString(put.Content)
		require.NoError(t, err)
		assert.Equal(t, "console.log('hi')", string(decoded))
	})

	t.Run("updates an existing file conditioned on its SHA", func(t *testing.T) {
		var put contentPutBody
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				fmt.Fprintln(w, `{"type": "file", "name": "bot.js", "path": "discord-bot/bot.js", "sha": "oldsha"}`)
			case http.MethodPut:
				require.NoError(t, json.NewDecoder(r.Body).Decode(&put))
				fmt.Fprintln(w, `{"content": {"sha": "blob2"}, "commit": {"sha": "commit2"}}`)
			}
		})
		client, _ := setupTestClient(t, handler)

		result, err := client.PushFile(ctx, "gh-token", "octocat/hello-world", "discord-bot/bot.js", "new code", "")

		require.NoError(t, err)
		assert.Equal(t, OutcomeUpdated, result.Outcome)
		assert.Equal(t, "commit2", result.CommitSHA)
		require.NotNil(t, put.SHA)
		assert.Equal(t, "oldsha", *put.SHA, "the write must be conditioned on the SHA that was read")
	})

	t.Run("a stale SHA surfaces as a conflict, never an overwrite", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				fmt.Fprintln(w, `{"type": "file", "sha": "stale"}`)
			case http.MethodPut:
				w.WriteHeader(http.StatusConflict)
				fmt.Fprintln(w, `{"message": "discord-bot/bot.js does not match stale"}`)
			}
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.PushFile(ctx, "gh-token", "octocat/hello-world", "discord-bot/bot.js", "code", "msg")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("a rejected token is an authentication error", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"message": "Bad credentials"}`)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.PushFile(ctx, "bad-token", "octocat/hello-world", "discord-bot/bot.js", "code", "msg")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrAuthentication)
	})

	t.Run("a server error is transient", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.PushFile(ctx, "gh-token", "octocat/hello-world", "discord-bot/bot.js", "code", "msg")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrTransient)
	})

	t.Run("rejects a malformed repository identity without any request", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected for a malformed repository identity")
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.PushFile(ctx, "gh-token", "not-a-repo", "bot.js", "code", "msg")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestSplitRepoName(t *testing.T) {
	owner, repo, err := SplitRepoName("octocat/hello-world")
	require.NoError(t, err)
	assert.Equal(t, "octocat", owner)
	assert.Equal(t, "hello-world", repo)

	for _, bad := range []string{"", "justaname", "owner/", "/name", "a/b/c"} {
		_, _, err := SplitRepoName(bad)
		assert.Error(t, err, "repo name %q should be rejected", bad)
	}
}
