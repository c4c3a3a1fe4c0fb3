// internal/api/respond.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperr "github.com/sussybocca/botforge-sync/internal/errors"
	"github.com/sussybocca/botforge-sync/internal/model"
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondMappedError translates the error taxonomy into HTTP statuses.
// Internal detail stays in the log; the client sees the summary only.
func (h *Handler) respondMappedError(w http.ResponseWriter, err error, summary string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		respondWithError(w, http.StatusBadRequest, summary)
	case errors.Is(err, apperr.ErrAuthentication):
		respondWithError(w, http.StatusUnauthorized, summary)
	case errors.Is(err, apperr.ErrNotFound):
		respondWithError(w, http.StatusNotFound, summary)
	case errors.Is(err, apperr.ErrConflict):
		respondWithError(w, http.StatusConflict, summary)
	default:
		h.logger.Error(summary, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type linkResponse struct {
	ID          int64      `json:"id"`
	RepoName    string     `json:"repo_name"`
	BotID       *string    `json:"bot_id"`
	Visibility  string     `json:"visibility"`
	LastSyncAt  *time.Time `json:"last_sync_at"`
	CommitCount int        `json:"commit_count"`
}

func toLinkResponse(l model.RepoLink) linkResponse {
	out := linkResponse{
		ID:          l.ID,
		RepoName:    l.RepoName,
		Visibility:  l.Visibility,
		CommitCount: l.CommitCount,
	}
	if l.BotID.Valid {
		out.BotID = &l.BotID.String
	}
	if l.LastSyncAt.Valid {
		out.LastSyncAt = &l.LastSyncAt.Time
	}
	return out
}

type statsResponse struct {
	TotalRepos   int        `json:"total_repos"`
	LinkedRepos  int        `json:"linked_repos"`
	TotalCommits int64      `json:"total_commits"`
	TotalBots    int        `json:"total_bots"`
	LastSyncAt   *time.Time `json:"last_sync_at"`
}

func toStatsResponse(s model.Stats) statsResponse {
	out := statsResponse{
		TotalRepos:   s.TotalRepos,
		LinkedRepos:  s.LinkedRepos,
		TotalCommits: s.TotalCommits,
		TotalBots:    s.TotalBots,
	}
	if s.LastSyncAt.Valid {
		out.LastSyncAt = &s.LastSyncAt.Time
	}
	return out
}
