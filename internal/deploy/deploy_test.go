// internal/deploy/deploy_test.go
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sussybocca/botforge-sync/internal/model"
)

type fakeDispatcher struct {
	intents []model.DeployIntent
	err     error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, intent model.DeployIntent) error {
	d.intents = append(d.intents, intent)
	return d.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestTrigger_MaybeTrigger(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no linked bot skips without dispatching", func(t *testing.T) {
		d := &fakeDispatcher{}
		trigger := NewTrigger(d, testLogger())

		outcome := trigger.MaybeTrigger(ctx, "octocat/hello-world", "", "push")

		assert.Equal(t, SkippedNoLink, outcome)
		assert.Empty(t, d.intents)
	})

	t.Run("linked bot emits exactly one intent", func(t *testing.T) {
		d := &fakeDispatcher{}
		trigger := NewTrigger(d, testLogger())
		trigger.now = func() time.Time { return fixed }

		outcome := trigger.MaybeTrigger(ctx, "octocat/hello-world", "bot-123", "push")

		assert.Equal(t, Triggered, outcome)
		require.Len(t, d.intents, 1)
		intent := d.intents[0]
		assert.Equal(t, "bot-123", intent.BotID)
		assert.Equal(t, "push", intent.Reason)
		assert.Equal(t, fixed, intent.Timestamp)
		assert.NotEmpty(t, intent.DeliveryID)
	})

	t.Run("delivery ids differ between emissions", func(t *testing.T) {
		d := &fakeDispatcher{}
		trigger := NewTrigger(d, testLogger())

		trigger.MaybeTrigger(ctx, "octocat/hello-world", "bot-123", "push")
		trigger.MaybeTrigger(ctx, "octocat/hello-world", "bot-123", "push")

		require.Len(t, d.intents, 2)
		assert.NotEqual(t, d.intents[0].DeliveryID, d.intents[1].DeliveryID)
	})

	t.Run("dispatch failure is swallowed, sync already recorded", func(t *testing.T) {
		d := &fakeDispatcher{err: errors.New("deployment service down")}
		trigger := NewTrigger(d, testLogger())

		outcome := trigger.MaybeTrigger(ctx, "octocat/hello-world", "bot-123", "manual")

		assert.Equal(t, Triggered, outcome)
		assert.Len(t, d.intents, 1)
	})
}

func TestWebhookDispatcher(t *testing.T) {
	t.Run("posts the intent as JSON", func(t *testing.T) {
		var got model.DeployIntent
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		d := NewWebhookDispatcher(server.URL)
		intent := model.DeployIntent{
			DeliveryID: "d-1",
			BotID:      "bot-123",
			Reason:     "push",
			Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}
		require.NoError(t, d.Dispatch(context.Background(), intent))
		assert.Equal(t, intent, got)
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		d := NewWebhookDispatcher(server.URL)
		err := d.Dispatch(context.Background(), model.DeployIntent{BotID: "bot-123"})
		require.Error(t, err)

		var dispatchErr *DispatchError
		require.ErrorAs(t, err, &dispatchErr)
		assert.Equal(t, http.StatusBadGateway, dispatchErr.StatusCode)
	})
}
