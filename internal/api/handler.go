// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sussybocca/botforge-sync/internal/auth"
	"github.com/sussybocca/botforge-sync/internal/discord"
	apperr "github.com/sussybocca/botforge-sync/internal/errors"
	gh "github.com/sussybocca/botforge-sync/internal/github"
	"github.com/sussybocca/botforge-sync/internal/model"
	"github.com/sussybocca/botforge-sync/internal/store"
	"github.com/sussybocca/botforge-sync/internal/syncer"
	"github.com/sussybocca/botforge-sync/internal/webhook"
)

// Webhook payloads over this size are rejected outright.
const maxWebhookBody = 5 << 20

// New bots start from this template; the editor replaces it on first save.
const defaultBotTemplate = `const { Client, GatewayIntentBits } = require('discord.js');

const client = new Client({ intents: [GatewayIntentBits.Guilds] });

client.once('ready', () => {
  console.log('Bot is online!');
});

client.login(process.env.BOT_TOKEN);
`

// PushProcessor handles verified push events.
type PushProcessor interface {
	ProcessPush(ctx context.Context, ev model.InboundEvent) (syncer.Result, error)
}

// Pusher writes bot source to an external repository.
type Pusher interface {
	PushFile(ctx context.Context, token, repoName, path, content, message string) (gh.PushResult, error)
}

// TokenValidator checks bot tokens against the chat platform.
type TokenValidator interface {
	ValidateBotToken(ctx context.Context, token string) (discord.BotIdentity, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db            store.Store
	processor     PushProcessor
	pusher        Pusher
	validator     TokenValidator
	auth          auth.Provider
	webhookSecret []byte
	logger        *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db store.Store, processor PushProcessor, pusher Pusher, validator TokenValidator, authp auth.Provider, webhookSecret []byte, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:            db,
		processor:     processor,
		pusher:        pusher,
		validator:     validator,
		auth:          authp,
		webhookSecret: webhookSecret,
		logger:        logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/github/webhook", h.handleWebhook)
		r.Post("/github/push", h.handlePush)

		r.Get("/repos", h.listRepos)
		r.Post("/repos/{owner}/{name}/link", h.linkRepo)
		r.Delete("/repos/{owner}/{name}/link", h.unlinkRepo)

		r.Get("/stats", h.getStats)

		r.Post("/bots", h.createBot)
		r.Get("/bots", h.listBots)
		r.Get("/bots/{id}", h.getBot)
		r.Put("/bots/{id}/source", h.updateBotSource)
		r.Delete("/bots/{id}", h.deleteBot)
		r.Post("/bots/test", h.testBot)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebhook ingests GitHub webhook deliveries.
// POST /v1/github/webhook
//
// A 200 attests only that the event was durably recorded (or was inert);
// any downstream deployment runs asynchronously. A failed store write
// returns 500 so GitHub's redelivery policy takes over.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Unreadable payload")
		return
	}

	if len(h.webhookSecret) == 0 {
		h.logger.Warn("accepting webhook without signature verification; no secret configured")
	}
	if !webhook.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), h.webhookSecret) {
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	ev, err := webhook.Classify(body, r.Header.Get("X-GitHub-Event"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Malformed payload")
		return
	}
	if ev.Kind != model.KindPush {
		// Unrecognized event types are valid, just inert.
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	res, err := h.processor.ProcessPush(r.Context(), ev)
	if err != nil {
		h.logger.Error("Failed to process push event", "repo", ev.RepoName, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"outcome": string(res.Outcome),
	})
}

type pushRequest struct {
	RepoName string `json:"repo_name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Message  string `json:"message"`
}

// handlePush writes bot source to the caller's repository.
// POST /v1/github/push
func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	token, ok := h.auth.DelegatedToken(r, "github")
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Path == "" {
		respondWithError(w, http.StatusBadRequest, "'path' is required")
		return
	}

	result, err := h.pusher.PushFile(r.Context(), token, req.RepoName, req.Path, req.Content, req.Message)
	if errors.Is(err, apperr.ErrConflict) {
		// Not retried automatically; the caller re-reads and resolves.
		respondWithJSON(w, http.StatusOK, gh.PushResult{Outcome: gh.OutcomeConflict})
		return
	}
	if err != nil {
		h.respondMappedError(w, err, "Failed to push to GitHub")
		return
	}

	// The push succeeded; record the sync. A failure here only loses
	// metadata freshness, so it does not fail the request.
	if _, err := h.db.RecordSync(r.Context(), req.RepoName, 1, time.Now().UTC()); err != nil {
		h.logger.Error("Push succeeded but sync metadata was not recorded", "repo", req.RepoName, "error", err)
	}

	respondWithJSON(w, http.StatusOK, result)
}

// listRepos returns every repository link with its sync metadata.
// GET /v1/repos
func (h *Handler) listRepos(w http.ResponseWriter, r *http.Request) {
	links, err := h.db.ListLinks(r.Context())
	if err != nil {
		h.logger.Error("Failed to list repository links", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]linkResponse, len(links))
	for i, l := range links {
		out[i] = toLinkResponse(l)
	}
	respondWithJSON(w, http.StatusOK, out)
}

type linkRequest struct {
	BotID string `json:"bot_id"`
}

// linkRepo associates a repository with a bot.
// POST /v1/repos/{owner}/{name}/link
func (h *Handler) linkRepo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.CurrentUser(r); !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}
	repoName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BotID == "" {
		respondWithError(w, http.StatusBadRequest, "'bot_id' is required")
		return
	}

	link, err := h.db.LinkRepository(r.Context(), repoName, req.BotID)
	if err != nil {
		h.respondMappedError(w, err, "Failed to link repository")
		return
	}
	respondWithJSON(w, http.StatusOK, toLinkResponse(link))
}

// unlinkRepo disconnects a repository. The linked bot survives.
// DELETE /v1/repos/{owner}/{name}/link
func (h *Handler) unlinkRepo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.CurrentUser(r); !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}
	repoName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	if err := h.db.UnlinkRepository(r.Context(), repoName); err != nil {
		h.respondMappedError(w, err, "Failed to unlink repository")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getStats returns the dashboard roll-up.
// GET /v1/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to gather stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, toStatsResponse(stats))
}

type createBotRequest struct {
	Name string `json:"name"`
}

// createBot creates a bot seeded with the default source template.
// POST /v1/bots
func (h *Handler) createBot(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.CurrentUser(r); !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var req createBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		respondWithError(w, http.StatusBadRequest, "'name' is required")
		return
	}

	bot, err := h.db.CreateBot(r.Context(), req.Name, defaultBotTemplate)
	if err != nil {
		h.respondMappedError(w, err, "Failed to create bot")
		return
	}
	respondWithJSON(w, http.StatusCreated, bot)
}

// GET /v1/bots
func (h *Handler) listBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.db.ListBots(r.Context())
	if err != nil {
		h.logger.Error("Failed to list bots", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, bots)
}

// GET /v1/bots/{id}
func (h *Handler) getBot(w http.ResponseWriter, r *http.Request) {
	bot, err := h.db.GetBot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondMappedError(w, err, "Failed to get bot")
		return
	}
	respondWithJSON(w, http.StatusOK, bot)
}

type updateSourceRequest struct {
	SourceCode      string `json:"source_code"`
	ExpectedVersion string `json:"expected_version"`
}

// updateBotSource saves edited source, conditioned on the version the
// editor loaded. A stale version is a 409; the editor re-reads and retries.
// PUT /v1/bots/{id}/source
func (h *Handler) updateBotSource(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.CurrentUser(r); !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	var req updateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ExpectedVersion == "" {
		respondWithError(w, http.StatusBadRequest, "'source_code' and 'expected_version' are required")
		return
	}

	bot, err := h.db.UpdateBotSource(r.Context(), chi.URLParam(r, "id"), req.SourceCode, req.ExpectedVersion)
	if err != nil {
		h.respondMappedError(w, err, "Failed to update bot source")
		return
	}
	respondWithJSON(w, http.StatusOK, bot)
}

// DELETE /v1/bots/{id}
func (h *Handler) deleteBot(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.CurrentUser(r); !ok {
		respondWithError(w, http.StatusUnauthorized, "Missing authentication")
		return
	}

	if err := h.db.DeleteBot(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondMappedError(w, err, "Failed to delete bot")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type testBotRequest struct {
	BotToken string `json:"bot_token"`
}

// testBot validates a Discord bot token and reports the bot identity.
// POST /v1/bots/test
func (h *Handler) testBot(w http.ResponseWriter, r *http.Request) {
	var req testBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BotToken == "" {
		respondWithError(w, http.StatusBadRequest, "'bot_token' is required")
		return
	}

	identity, err := h.validator.ValidateBotToken(r.Context(), req.BotToken)
	if err != nil {
		h.respondMappedError(w, err, "Failed to validate bot token")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"bot":     identity,
	})
}
