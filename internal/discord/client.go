// internal/discord/client.go
package discord

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
)

// BotIdentity is what Discord reports about a bot account.
type BotIdentity struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Client talks to the Discord REST API. Only token validation is needed
// here; running the bot is someone else's job.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// ValidateBotToken checks a bot token against GET /users/@me and returns
// the identity Discord associates with it. An unrecognized token is an
// authentication error, not a transient one.
func (c *Client) ValidateBotToken(ctx context.Context, token string) (BotIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/@me", nil)
	if err != nil {
		return BotIdentity{}, apperr.Transientf("build discord request: %v", err)
	}
	req.Header.Set("Authorization", "Bot "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BotIdentity{}, apperr.Transientf("discord request: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var identity BotIdentity
		if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
			return BotIdentity{}, apperr.Transientf("decode discord response: %v", err)
		}
		return identity, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return BotIdentity{}, apperr.Authf("discord rejected the bot token")
	default:
		return BotIdentity{}, apperr.Transientf("discord returned status %d", resp.StatusCode)
	}
}
