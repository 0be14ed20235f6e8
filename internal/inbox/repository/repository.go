package repository

import (
	"context"
	"sort"

	"homeops-backend/internal/inbox/domain"
)

// ListFilter narrows a List call. Zero Limit means no limit.
type ListFilter struct {
	DisplayOnly bool
	Limit       int
	Offset      int
}

// ScoreRepository stores one verdict row per user and message.
type ScoreRepository interface {
	// Upsert inserts or replaces verdicts keyed by user and message id
	Upsert(ctx context.Context, emails ...*domain.ScoredEmail) error
	// Get returns nil, nil when the message has no verdict
	Get(ctx context.Context, userID, messageID string) (*domain.ScoredEmail, error)
	// List returns verdicts ordered by mental load, then newest first
	List(ctx context.Context, userID string, filter ListFilter) ([]*domain.ScoredEmail, error)
	// ListAll returns every verdict of the user, newest first
	ListAll(ctx context.Context, userID string) ([]*domain.ScoredEmail, error)
	Count(ctx context.Context, userID string, displayOnly bool) (int64, error)
}

// SyncStateRepository keeps the last sync outcome per user.
type SyncStateRepository interface {
	Get(ctx context.Context, userID string) (*domain.SyncState, error)
	Save(ctx context.Context, state *domain.SyncState) error
}

// sortFeed orders verdicts by mental load desc, then received desc, then
// message id so equal rows keep a stable order.
func sortFeed(emails []*domain.ScoredEmail) {
	sort.SliceStable(emails, func(i, j int) bool {
		a, b := emails[i], emails[j]
		if a.MentalLoadScore != b.MentalLoadScore {
			return a.MentalLoadScore > b.MentalLoadScore
		}
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.After(b.ReceivedAt)
		}
		return a.MessageID < b.MessageID
	})
}

func sortNewest(emails []*domain.ScoredEmail) {
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
}

// page applies offset and limit to an already ordered slice.
func page(emails []*domain.ScoredEmail, filter ListFilter) []*domain.ScoredEmail {
	if filter.Offset > 0 {
		if filter.Offset >= len(emails) {
			return []*domain.ScoredEmail{}
		}
		emails = emails[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(emails) {
		emails = emails[:filter.Limit]
	}
	return emails
}
