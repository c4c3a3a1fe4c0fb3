// internal/discord/client_test.go
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestClient_ValidateBotToken(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the bot identity for a valid token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/@me", r.URL.Path)
			assert.Equal(t, "Bot valid-token", r.Header.Get("Authorization"))
			fmt.Fprintln(w, `{"id": "42", "username": "forgebot", "discriminator": "0001", "avatar": "abc"}`)
		}))
		defer server.Close()

		identity, err := NewClient(server.URL, testLogger()).ValidateBotToken(ctx, "valid-token")

		require.NoError(t, err)
		assert.Equal(t, BotIdentity{ID: "42", Username: "forgebot", Discriminator: "0001", Avatar: "abc"}, identity)
	})

	t.Run("an unrecognized token is an authentication error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintln(w, `{"message": "401: Unauthorized"}`)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, testLogger()).ValidateBotToken(ctx, "bad-token")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrAuthentication)
	})

	t.Run("a server error is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, testLogger()).ValidateBotToken(ctx, "any-token")

		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrTransient)
	})
}
