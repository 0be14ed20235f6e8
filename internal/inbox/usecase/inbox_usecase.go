package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"homeops-backend/internal/inbox/domain"
	"homeops-backend/internal/inbox/repository"
	"homeops-backend/pkg/cache"
	"homeops-backend/pkg/fuzzy"
	"homeops-backend/pkg/metrics"
	"homeops-backend/pkg/scoring"

	"github.com/rs/zerolog"
)

const (
	defaultFeedLimit   = 50
	defaultSearchLimit = 20
	defaultMaxResults  = 50
)

// Dependencies wires the inbox usecase. Gmail, IMAP, Categorizer, Cache and
// Index are optional; a nil source makes accounts of that provider unsyncable.
// PushTopic is the full Pub/Sub topic name Gmail publishes to; empty disables
// Watch.
type Dependencies struct {
	Scores      repository.ScoreRepository
	SyncStates  repository.SyncStateRepository
	Accounts    AccountProvider
	Gmail       GmailSource
	IMAP        IMAPSource
	Categorizer Categorizer
	Cache       cache.Cache
	Index       Indexer
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	MaxResults  int
	PushTopic   string
}

// inboxUsecase implements InboxUsecase interface
type inboxUsecase struct {
	Dependencies
	scorer atomic.Pointer[scoring.Scorer]
	now    func() time.Time
}

// NewInboxUsecase creates a new instance of inboxUsecase
func NewInboxUsecase(deps Dependencies, scorer *scoring.Scorer) InboxUsecase {
	if scorer == nil {
		scorer = scoring.Default()
	}
	if deps.MaxResults <= 0 {
		deps.MaxResults = defaultMaxResults
	}
	u := &inboxUsecase{Dependencies: deps, now: time.Now}
	u.scorer.Store(scorer)
	return u
}

func (u *inboxUsecase) Scorer() *scoring.Scorer {
	return u.scorer.Load()
}

// SetThreshold swaps in a copy of the active scorer with another threshold.
// Stored verdicts keep their old flags until the next sync or rescore.
func (u *inboxUsecase) SetThreshold(threshold int) *scoring.Scorer {
	next := u.scorer.Load().WithThreshold(threshold)
	u.scorer.Store(next)
	u.Logger.Info().Int("threshold", next.Threshold()).Msg("display threshold changed")
	return next
}

func (u *inboxUsecase) Preview(records []scoring.EmailRecord) []scoring.ScoredEmail {
	return u.scorer.Load().ScoreBatch(records)
}

func (u *inboxUsecase) GetFeed(ctx context.Context, userID string, limit, offset int) ([]*domain.ScoredEmail, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if offset < 0 {
		offset = 0
	}
	emails, err := u.Scores.List(ctx, userID, repository.ListFilter{DisplayOnly: true, Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}
	return emails, nil
}

func (u *inboxUsecase) CountFeed(ctx context.Context, userID string) (int64, error) {
	n, err := u.Scores.Count(ctx, userID, true)
	if err != nil {
		return 0, fmt.Errorf("failed to count feed: %w", err)
	}
	return n, nil
}

func (u *inboxUsecase) GetCalibration(ctx context.Context, userID string) (*Calibration, error) {
	emails, err := u.Scores.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}

	scorer := u.scorer.Load()
	cal := &Calibration{
		Threshold:   scorer.Threshold(),
		RuleVersion: scorer.Rules().Version,
		Total:       len(emails),
		Emails:      emails,
	}
	for _, e := range emails {
		if e.ShouldDisplay {
			cal.Displayed++
		}
	}
	cal.Filtered = cal.Total - cal.Displayed

	if u.SyncStates != nil {
		state, err := u.SyncStates.Get(ctx, userID)
		if err != nil {
			u.Logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load sync state")
		}
		cal.LastSync = state
	}
	return cal, nil
}

func (u *inboxUsecase) GetEmail(ctx context.Context, userID, messageID string) (*domain.ScoredEmail, error) {
	email, err := u.Scores.Get(ctx, userID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load email: %w", err)
	}
	if email == nil {
		return nil, domain.ErrEmailNotFound
	}
	return email, nil
}

// Search ranks stored emails against query with typo tolerance. Ties go to
// the heavier email.
func (u *inboxUsecase) Search(ctx context.Context, userID, query string, limit int) ([]*domain.ScoredEmail, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	emails, err := u.Scores.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}

	type hit struct {
		email *domain.ScoredEmail
		rank  float64
	}
	hits := make([]hit, 0)
	for _, e := range emails {
		if r := fuzzy.Rank(query, e.Subject, e.Sender, e.Snippet); r > 0 {
			hits = append(hits, hit{email: e, rank: r})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank > hits[j].rank
		}
		return hits[i].email.MentalLoadScore > hits[j].email.MentalLoadScore
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]*domain.ScoredEmail, len(hits))
	for i, h := range hits {
		results[i] = h.email
	}
	return results, nil
}

func (u *inboxUsecase) Rescore(ctx context.Context, userID string) (*RescoreResult, error) {
	emails, err := u.Scores.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}

	scorer := u.scorer.Load()
	result := &RescoreResult{
		Rescored:    len(emails),
		Threshold:   scorer.Threshold(),
		RuleVersion: scorer.Rules().Version,
	}
	if len(emails) == 0 {
		return result, nil
	}

	records := make([]scoring.EmailRecord, len(emails))
	for i, e := range emails {
		records[i] = e.Record()
	}
	verdicts := scorer.ScoreBatch(records)

	now := u.now()
	var shown, hidden []*domain.ScoredEmail
	for i, e := range emails {
		if e.ShouldDisplay != verdicts[i].ShouldDisplay || e.Score != verdicts[i].Score {
			result.Changed++
		}
		wasShown := e.ShouldDisplay
		e.Apply(verdicts[i], now)
		switch {
		case e.ShouldDisplay && !wasShown:
			shown = append(shown, e)
		case !e.ShouldDisplay && wasShown:
			hidden = append(hidden, e)
		}
		if e.ShouldDisplay {
			result.Displayed++
		}
	}

	if err := u.Scores.Upsert(ctx, emails...); err != nil {
		return nil, fmt.Errorf("failed to store verdicts: %w", err)
	}
	u.index(ctx, shown)
	u.unindex(ctx, hidden)

	u.Logger.Info().
		Str("user_id", userID).
		Int("rescored", result.Rescored).
		Int("changed", result.Changed).
		Msg("rescored inbox")
	return result, nil
}
