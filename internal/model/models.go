// internal/model/models.go
package model

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"
)

// RepoLink associates one GitHub repository with at most one bot and
// carries the repository's last-known sync metadata.
type RepoLink struct {
	ID          int64          `json:"id"`
	RepoName    string         `json:"repo_name"` // owner/name
	BotID       sql.NullString `json:"-"`
	Visibility  string         `json:"visibility"`
	LastSyncAt  sql.NullTime   `json:"-"`
	CommitCount int            `json:"commit_count"`
	DBCreatedAt time.Time      `json:"created_at"`
	DBUpdatedAt time.Time      `json:"updated_at"`
}

// Bot is one bot's current source code and metadata.
type Bot struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SourceCode    string    `json:"source_code"`
	SourceVersion string    `json:"source_version"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SourceVersion derives the version tag for a body of bot source code.
// Equal code always yields an equal tag, so a save that does not change
// the code does not advance the version.
func SourceVersion(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// EventKind discriminates classified webhook notifications.
type EventKind string

const (
	KindPush  EventKind = "push"
	KindOther EventKind = "other"
)

// InboundEvent is a verified, classified webhook notification. It is
// transient; nothing persists it.
type InboundEvent struct {
	RepoName     string
	Kind         EventKind
	ChangedPaths []string
	CommitCount  int
}

// DeployIntent is the record handed to the deployment collaborator when a
// redeploy is triggered. DeliveryID is unique per emission.
type DeployIntent struct {
	DeliveryID string    `json:"delivery_id"`
	BotID      string    `json:"bot_id"`
	Reason     string    `json:"trigger_reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats is the dashboard roll-up over repository links and bots.
type Stats struct {
	TotalRepos   int          `json:"total_repos"`
	LinkedRepos  int          `json:"linked_repos"`
	TotalCommits int64        `json:"total_commits"`
	TotalBots    int          `json:"total_bots"`
	LastSyncAt   sql.NullTime `json:"-"`
}
