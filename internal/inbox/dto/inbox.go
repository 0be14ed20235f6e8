package dto

import (
	"homeops-backend/internal/inbox/domain"
	"homeops-backend/pkg/scoring"
)

type FeedResponse struct {
	Emails []*domain.ScoredEmail `json:"emails"`
	Total  int64                 `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

type SearchResponse struct {
	Query   string                `json:"query"`
	Results []*domain.ScoredEmail `json:"results"`
}

// PreviewRequest is the object form of a preview body. A bare JSON array of
// records is accepted too.
type PreviewRequest struct {
	Emails []scoring.EmailRecord `json:"emails"`
}

type PreviewResponse struct {
	Results     []scoring.ScoredEmail `json:"results"`
	Threshold   int                   `json:"threshold"`
	RuleVersion string                `json:"rule_version"`
}

type SyncQueuedResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}
