package usecase

import (
	"context"
	"time"

	accountdomain "homeops-backend/internal/account/domain"
	"homeops-backend/internal/inbox/domain"
	"homeops-backend/pkg/ai"
	"homeops-backend/pkg/chroma"
	"homeops-backend/pkg/imap"
	"homeops-backend/pkg/scoring"
)

// InboxUsecase defines the interface for inbox business logic
type InboxUsecase interface {
	// SyncInbox fetches, scores and stores the newest messages of the account
	SyncInbox(ctx context.Context, userID string) (*SyncResult, error)
	// GetFeed returns display-eligible emails, heaviest first
	GetFeed(ctx context.Context, userID string, limit, offset int) ([]*domain.ScoredEmail, error)
	// CountFeed returns how many emails GetFeed can page through
	CountFeed(ctx context.Context, userID string) (int64, error)
	// GetCalibration returns every stored verdict, shown or not
	GetCalibration(ctx context.Context, userID string) (*Calibration, error)
	GetEmail(ctx context.Context, userID, messageID string) (*domain.ScoredEmail, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*domain.ScoredEmail, error)
	// Watch registers Gmail push notifications for the account and records
	// the history id later syncs continue from
	Watch(ctx context.Context, userID string) (*domain.SyncState, error)
	// Rescore re-runs the active scorer over the stored emails of the user
	Rescore(ctx context.Context, userID string) (*RescoreResult, error)
	// Preview scores records without storing anything
	Preview(records []scoring.EmailRecord) []scoring.ScoredEmail

	Scorer() *scoring.Scorer
	SetThreshold(threshold int) *scoring.Scorer
}

// AccountProvider hands out mail credentials and stores refreshed tokens.
type AccountProvider interface {
	GetAccount(id string) (*accountdomain.Account, error)
	UpdateTokens(id, accessToken, refreshToken string) error
}

type GmailSource interface {
	FetchRecent(ctx context.Context, accessToken, refreshToken string, maxResults int, onTokenRefresh domain.TokenUpdateFunc) ([]*domain.Email, error)
	// AddedSince returns ids of inbox messages added after startHistoryID and
	// the mailbox's current history id
	AddedSince(ctx context.Context, accessToken, refreshToken string, startHistoryID uint64, onTokenRefresh domain.TokenUpdateFunc) ([]string, uint64, error)
	FetchByIDs(ctx context.Context, accessToken, refreshToken string, ids []string, onTokenRefresh domain.TokenUpdateFunc) ([]*domain.Email, error)
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh domain.TokenUpdateFunc) (uint64, error)
}

type IMAPSource interface {
	FetchRecent(ctx context.Context, creds imap.Credentials, maxResults int) ([]*domain.Email, error)
}

type Categorizer interface {
	CategorizeEmail(ctx context.Context, text string) (*ai.Categorization, error)
}

// Indexer stores displayable emails for retrieval by the assistant.
type Indexer interface {
	Upsert(ctx context.Context, doc chroma.Document) error
	Delete(ctx context.Context, userID, messageID string) error
}

// SyncResult summarizes one SyncInbox run.
type SyncResult struct {
	UserID      string        `json:"user_id"`
	Fetched     int           `json:"fetched"`
	Categorized int           `json:"categorized"`
	Displayed   int           `json:"displayed"`
	Filtered    int           `json:"filtered"`
	Indexed     int           `json:"indexed"`
	Incremental bool          `json:"incremental"`
	RuleVersion string        `json:"rule_version"`
	Duration    time.Duration `json:"duration_ms"`
	SyncedAt    time.Time     `json:"synced_at"`
}

// Calibration shows which stored emails pass the active threshold.
type Calibration struct {
	Threshold   int                   `json:"threshold"`
	RuleVersion string                `json:"rule_version"`
	Total       int                   `json:"total"`
	Displayed   int                   `json:"displayed"`
	Filtered    int                   `json:"filtered"`
	LastSync    *domain.SyncState     `json:"last_sync,omitempty"`
	Emails      []*domain.ScoredEmail `json:"emails"`
}

// RescoreResult summarizes one Rescore run.
type RescoreResult struct {
	Rescored    int    `json:"rescored"`
	Displayed   int    `json:"displayed"`
	Changed     int    `json:"changed"`
	Threshold   int    `json:"threshold"`
	RuleVersion string `json:"rule_version"`
}
