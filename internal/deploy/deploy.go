// internal/deploy/deploy.go
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sussybocca/botforge-sync/internal/model"
)

// Outcome is the terminal state of a redeploy decision.
type Outcome string

const (
	Triggered          Outcome = "triggered"
	SkippedNoLink      Outcome = "skipped_no_link"
	SkippedNotRelevant Outcome = "skipped_not_relevant"
)

// Dispatcher delivers deploy intents to the deployment collaborator. The
// collaborator owns retry and backoff for the deployment itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent model.DeployIntent) error
}

// Trigger emits at most one deploy intent per inbound event. Delivery is
// fire-and-forget: a dispatch failure is logged, never propagated, because
// the sync is already durably recorded by the time we get here.
type Trigger struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewTrigger(dispatcher Dispatcher, logger *slog.Logger) *Trigger {
	return &Trigger{
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// MaybeTrigger emits a deploy intent for the bot linked to repoName.
// An empty botID means the repository has no linked bot; that is a valid
// outcome, never an error.
func (t *Trigger) MaybeTrigger(ctx context.Context, repoName, botID, reason string) Outcome {
	if botID == "" {
		t.logger.Debug("no bot linked, skipping redeploy", "repo", repoName)
		return SkippedNoLink
	}

	intent := model.DeployIntent{
		DeliveryID: uuid.NewString(),
		BotID:      botID,
		Reason:     reason,
		Timestamp:  t.now().UTC(),
	}
	if err := t.dispatcher.Dispatch(ctx, intent); err != nil {
		t.logger.Error("deploy intent dispatch failed",
			"repo", repoName, "bot", botID, "delivery_id", intent.DeliveryID, "error", err)
	} else {
		t.logger.Info("deploy intent emitted",
			"repo", repoName, "bot", botID, "delivery_id", intent.DeliveryID, "reason", reason)
	}
	return Triggered
}

// WebhookDispatcher POSTs intents as JSON to the deployment service.
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
}

func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, intent model.DeployIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &DispatchError{StatusCode: resp.StatusCode}
	}
	return nil
}

// DispatchError reports a non-2xx response from the deployment service.
type DispatchError struct {
	StatusCode int
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("deployment service returned status %d", e.StatusCode)
}

// LogDispatcher records intents in the log only. Used when no deployment
// service is configured, mirroring a dev setup.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d *LogDispatcher) Dispatch(_ context.Context, intent model.DeployIntent) error {
	d.Logger.Info("deploy intent (no deployment service configured)",
		"bot", intent.BotID, "reason", intent.Reason, "delivery_id", intent.DeliveryID)
	return nil
}
