package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	accountdomain "homeops-backend/internal/account/domain"
	"homeops-backend/internal/inbox/domain"
	"homeops-backend/pkg/ai"
	"homeops-backend/pkg/chroma"
	"homeops-backend/pkg/imap"
	"homeops-backend/pkg/metrics"
	"homeops-backend/pkg/scoring"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	categorizeConcurrency = 4
	categorizeCacheTTL    = 7 * 24 * time.Hour
	maxCategorizeChars    = 4000
)

func (u *inboxUsecase) SyncInbox(ctx context.Context, userID string) (*SyncResult, error) {
	start := u.now()
	log := u.Logger.With().Str("user_id", userID).Logger()

	prev := u.loadSyncState(ctx, userID)
	var historyID uint64
	if prev != nil {
		historyID = prev.HistoryID
	}

	result, nextHistoryID, err := u.syncInbox(ctx, userID, historyID)
	elapsed := u.now().Sub(start)

	state := &domain.SyncState{UserID: userID, LastSyncedAt: start, HistoryID: historyID, UpdatedAt: u.now()}
	if err != nil {
		state.LastError = err.Error()
		if errors.Is(err, domain.ErrNoMailSource) {
			u.Metrics.ObserveSync(metrics.SyncSkipped, elapsed)
		} else {
			u.Metrics.ObserveSync(metrics.SyncFailed, elapsed)
		}
		log.Error().Err(err).Dur("duration", elapsed).Msg("inbox sync failed")
	} else {
		result.Duration = elapsed
		result.SyncedAt = start
		state.LastCount = result.Fetched
		state.HistoryID = nextHistoryID
		u.Metrics.ObserveSync(metrics.SyncOK, elapsed)
		log.Info().
			Int("fetched", result.Fetched).
			Int("displayed", result.Displayed).
			Int("categorized", result.Categorized).
			Bool("incremental", result.Incremental).
			Dur("duration", elapsed).
			Msg("inbox synced")
	}

	if u.SyncStates != nil {
		if saveErr := u.SyncStates.Save(ctx, state); saveErr != nil {
			log.Warn().Err(saveErr).Msg("failed to save sync state")
		}
	}
	return result, err
}

// Watch starts Gmail push notifications for the account. Later syncs fetch
// only messages added after the returned history id.
func (u *inboxUsecase) Watch(ctx context.Context, userID string) (*domain.SyncState, error) {
	if u.Gmail == nil || u.PushTopic == "" {
		return nil, domain.ErrPushDisabled
	}
	account, err := u.account(userID)
	if err != nil {
		return nil, err
	}
	if !account.HasGmail() {
		return nil, domain.ErrNoMailSource
	}

	historyID, err := u.Gmail.Watch(ctx, account.AccessToken, account.RefreshToken, u.PushTopic, u.tokenSaver(account.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to watch mailbox: %w", err)
	}

	state := u.loadSyncState(ctx, userID)
	if state == nil {
		state = &domain.SyncState{UserID: userID}
	}
	state.HistoryID = historyID
	state.UpdatedAt = u.now()
	if u.SyncStates != nil {
		if err := u.SyncStates.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("failed to save sync state: %w", err)
		}
	}

	u.Logger.Info().Str("user_id", userID).Uint64("history_id", historyID).Msg("gmail watch started")
	return state, nil
}

func (u *inboxUsecase) loadSyncState(ctx context.Context, userID string) *domain.SyncState {
	if u.SyncStates == nil {
		return nil
	}
	state, err := u.SyncStates.Get(ctx, userID)
	if err != nil {
		u.Logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load sync state")
		return nil
	}
	return state
}

func (u *inboxUsecase) account(userID string) (*accountdomain.Account, error) {
	account, err := u.Accounts.GetAccount(userID)
	if err != nil {
		if errors.Is(err, accountdomain.ErrAccountNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (u *inboxUsecase) tokenSaver(accountID string) domain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		return u.Accounts.UpdateTokens(accountID, token.AccessToken, token.RefreshToken)
	}
}

// syncInbox returns the history id the next sync should continue from.
func (u *inboxUsecase) syncInbox(ctx context.Context, userID string, historyID uint64) (*SyncResult, uint64, error) {
	account, err := u.account(userID)
	if err != nil {
		return nil, 0, err
	}

	emails, nextHistoryID, incremental, err := u.fetch(ctx, account, historyID)
	if err != nil {
		return nil, 0, err
	}

	scorer := u.scorer.Load()
	result := &SyncResult{
		UserID:      userID,
		Fetched:     len(emails),
		RuleVersion: scorer.Rules().Version,
		Incremental: incremental,
	}
	if len(emails) == 0 {
		return result, nextHistoryID, nil
	}

	result.Categorized = u.categorize(ctx, userID, emails)

	records := make([]scoring.EmailRecord, len(emails))
	for i, e := range emails {
		records[i] = e.Record()
	}
	verdicts := scorer.ScoreBatch(records)

	now := u.now()
	rows := make([]*domain.ScoredEmail, len(emails))
	for i, e := range emails {
		rows[i] = domain.NewScoredEmail(userID, e, verdicts[i], now)
		u.Metrics.ObserveScore(verdicts[i].ShouldDisplay, verdicts[i].MentalLoadScore)
		if verdicts[i].ShouldDisplay {
			result.Displayed++
		}
	}
	result.Filtered = result.Fetched - result.Displayed

	if err := u.Scores.Upsert(ctx, rows...); err != nil {
		return nil, 0, fmt.Errorf("failed to store verdicts: %w", err)
	}

	result.Indexed = u.index(ctx, rows)
	return result, nextHistoryID, nil
}

// fetch loads the account's messages. A Gmail account with a known history id
// gets only the messages added since; if that fails it falls back to the
// newest MaxResults.
func (u *inboxUsecase) fetch(ctx context.Context, account *accountdomain.Account, historyID uint64) ([]*domain.Email, uint64, bool, error) {
	switch {
	case account.HasGmail() && u.Gmail != nil:
		onRefresh := u.tokenSaver(account.ID)
		if historyID != 0 {
			emails, next, err := u.fetchAdded(ctx, account, historyID, onRefresh)
			if err == nil {
				return emails, next, true, nil
			}
			u.Logger.Warn().Err(err).Str("user_id", account.ID).Msg("incremental gmail sync failed, fetching recent messages")
		}
		emails, err := u.Gmail.FetchRecent(ctx, account.AccessToken, account.RefreshToken, u.MaxResults, onRefresh)
		if err != nil {
			return nil, 0, false, fmt.Errorf("failed to fetch gmail: %w", err)
		}
		return emails, historyID, false, nil

	case account.HasIMAP() && u.IMAP != nil:
		creds := imap.Credentials{
			Host:     account.IMAPHost,
			Username: account.IMAPUsername,
			Password: account.IMAPPassword,
		}
		emails, err := u.IMAP.FetchRecent(ctx, creds, u.MaxResults)
		if err != nil {
			return nil, 0, false, fmt.Errorf("failed to fetch imap: %w", err)
		}
		return emails, 0, false, nil
	}
	return nil, 0, false, domain.ErrNoMailSource
}

func (u *inboxUsecase) fetchAdded(ctx context.Context, account *accountdomain.Account, historyID uint64, onRefresh domain.TokenUpdateFunc) ([]*domain.Email, uint64, error) {
	ids, next, err := u.Gmail.AddedSince(ctx, account.AccessToken, account.RefreshToken, historyID, onRefresh)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return nil, next, nil
	}
	emails, err := u.Gmail.FetchByIDs(ctx, account.AccessToken, account.RefreshToken, ids, onRefresh)
	if err != nil {
		return nil, 0, err
	}
	return emails, next, nil
}

// categorize fills missing category and priority labels through the text
// generation service. Failures leave the labels empty; the scorer then falls
// back to its defaults. It returns how many emails got labels.
func (u *inboxUsecase) categorize(ctx context.Context, userID string, emails []*domain.Email) int {
	if u.Categorizer == nil {
		return 0
	}

	labels := make([]*ai.Categorization, len(emails))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(categorizeConcurrency)
	for i, e := range emails {
		if e.Category != "" && e.Priority != "" {
			continue
		}
		g.Go(func() error {
			labels[i] = u.categorizeOne(gctx, userID, e)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for i, e := range emails {
		c := labels[i]
		if c == nil {
			continue
		}
		if e.Category == "" {
			e.Category = c.Category
		}
		if e.Priority == "" {
			e.Priority = c.Priority
		}
		n++
	}
	return n
}

func (u *inboxUsecase) categorizeOne(ctx context.Context, userID string, e *domain.Email) *ai.Categorization {
	key := "categorize:" + userID + ":" + e.MessageID
	if u.Cache != nil {
		var cached ai.Categorization
		hit, err := u.Cache.Get(ctx, key, &cached)
		if err != nil {
			u.Logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		if hit {
			return &cached
		}
	}

	text := truncateUTF8(e.Text(), maxCategorizeChars)
	c, err := u.Categorizer.CategorizeEmail(ctx, text)
	u.Metrics.ObserveAI("categorize", err)
	if err != nil {
		u.Logger.Warn().Err(err).Str("message_id", e.MessageID).Msg("categorization failed")
		return nil
	}

	if u.Cache != nil {
		if err := u.Cache.Set(ctx, key, c, categorizeCacheTTL); err != nil {
			u.Logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return c
}

// index pushes displayable emails to the retrieval store. Errors are logged;
// the feed does not depend on the index.
func (u *inboxUsecase) index(ctx context.Context, rows []*domain.ScoredEmail) int {
	if u.Index == nil {
		return 0
	}
	n := 0
	for _, r := range rows {
		if !r.ShouldDisplay {
			continue
		}
		err := u.Index.Upsert(ctx, chroma.Document{
			UserID:     r.UserID,
			MessageID:  r.MessageID,
			Subject:    r.Subject,
			Snippet:    r.Snippet,
			Sender:     r.Sender,
			Category:   r.Category,
			MentalLoad: r.MentalLoadScore,
		})
		if err != nil {
			u.Logger.Warn().Err(err).Str("message_id", r.MessageID).Msg("indexing failed")
			continue
		}
		n++
	}
	return n
}

// unindex drops emails that no longer pass the threshold from the retrieval store.
func (u *inboxUsecase) unindex(ctx context.Context, rows []*domain.ScoredEmail) {
	if u.Index == nil {
		return
	}
	for _, r := range rows {
		if err := u.Index.Delete(ctx, r.UserID, r.MessageID); err != nil {
			u.Logger.Warn().Err(err).Str("message_id", r.MessageID).Msg("removing from index failed")
		}
	}
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
