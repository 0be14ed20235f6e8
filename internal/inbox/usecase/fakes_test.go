package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	accountdomain "homeops-backend/internal/account/domain"
	"homeops-backend/internal/inbox/domain"
	"homeops-backend/internal/inbox/repository"
	"homeops-backend/pkg/ai"
	"homeops-backend/pkg/chroma"
	"homeops-backend/pkg/imap"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var fixedNow = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

type fakeScores struct {
	mu      sync.Mutex
	rows    map[string]*domain.ScoredEmail
	upserts int
	err     error
}

func newFakeScores(rows ...*domain.ScoredEmail) *fakeScores {
	f := &fakeScores{rows: map[string]*domain.ScoredEmail{}}
	for _, r := range rows {
		f.rows[domain.ScoredEmailID(r.UserID, r.MessageID)] = r
	}
	return f
}

func (f *fakeScores) Upsert(_ context.Context, emails ...*domain.ScoredEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts++
	for _, e := range emails {
		cp := *e
		f.rows[domain.ScoredEmailID(e.UserID, e.MessageID)] = &cp
	}
	return nil
}

func (f *fakeScores) Get(_ context.Context, userID, messageID string) (*domain.ScoredEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[domain.ScoredEmailID(userID, messageID)], nil
}

func (f *fakeScores) user(userID string) []*domain.ScoredEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ScoredEmail
	for _, r := range f.rows {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out
}

func (f *fakeScores) List(_ context.Context, userID string, filter repository.ListFilter) ([]*domain.ScoredEmail, error) {
	var out []*domain.ScoredEmail
	for _, r := range f.user(userID) {
		if filter.DisplayOnly && !r.ShouldDisplay {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MentalLoadScore != out[j].MentalLoadScore {
			return out[i].MentalLoadScore > out[j].MentalLoadScore
		}
		return out[i].ReceivedAt.After(out[j].ReceivedAt)
	})
	if filter.Offset >= len(out) {
		return []*domain.ScoredEmail{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeScores) ListAll(_ context.Context, userID string) ([]*domain.ScoredEmail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user(userID), nil
}

func (f *fakeScores) Count(_ context.Context, userID string, displayOnly bool) (int64, error) {
	out, _ := f.List(context.Background(), userID, repository.ListFilter{DisplayOnly: displayOnly})
	return int64(len(out)), nil
}

type fakeSyncStates struct {
	mu     sync.Mutex
	states map[string]*domain.SyncState
}

func newFakeSyncStates() *fakeSyncStates {
	return &fakeSyncStates{states: map[string]*domain.SyncState{}}
}

func (f *fakeSyncStates) Get(_ context.Context, userID string) (*domain.SyncState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[userID], nil
}

func (f *fakeSyncStates) Save(_ context.Context, s *domain.SyncState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[s.UserID] = s
	return nil
}

type fakeAccounts struct {
	accounts map[string]*accountdomain.Account
	updated  map[string]string
}

func newFakeAccounts(accounts ...*accountdomain.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: map[string]*accountdomain.Account{}, updated: map[string]string{}}
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) GetAccount(id string) (*accountdomain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, accountdomain.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccounts) ListAccounts() ([]*accountdomain.Account, error) {
	out := make([]*accountdomain.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) UpdateTokens(id, access, _ string) error {
	f.updated[id] = access
	return nil
}

type fakeGmail struct {
	emails     []*domain.Email
	err        error
	refreshTo  string
	maxResults int

	// history
	added      []string
	latest     uint64
	historyErr error
	sinceFrom  uint64
	fetchedIDs []string
	watchTopic string
	watchID    uint64
}

func (f *fakeGmail) AddedSince(_ context.Context, _, _ string, start uint64, _ domain.TokenUpdateFunc) ([]string, uint64, error) {
	f.sinceFrom = start
	if f.historyErr != nil {
		return nil, 0, f.historyErr
	}
	return f.added, f.latest, nil
}

func (f *fakeGmail) FetchByIDs(_ context.Context, _, _ string, ids []string, _ domain.TokenUpdateFunc) ([]*domain.Email, error) {
	f.fetchedIDs = ids
	var out []*domain.Email
	for _, e := range f.emails {
		for _, id := range ids {
			if e.MessageID == id {
				cp := *e
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (f *fakeGmail) Watch(_ context.Context, _, _, topic string, _ domain.TokenUpdateFunc) (uint64, error) {
	f.watchTopic = topic
	if f.err != nil {
		return 0, f.err
	}
	return f.watchID, nil
}

func (f *fakeGmail) FetchRecent(_ context.Context, _, _ string, maxResults int, onRefresh domain.TokenUpdateFunc) ([]*domain.Email, error) {
	f.maxResults = maxResults
	if f.refreshTo != "" && onRefresh != nil {
		if err := onRefresh(&oauth2.Token{AccessToken: f.refreshTo}); err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*domain.Email, len(f.emails))
	for i, e := range f.emails {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

type fakeIMAP struct {
	emails []*domain.Email
	creds  imap.Credentials
}

func (f *fakeIMAP) FetchRecent(_ context.Context, creds imap.Credentials, _ int) ([]*domain.Email, error) {
	f.creds = creds
	return f.emails, nil
}

type fakeCategorizer struct {
	mu    sync.Mutex
	calls int
	texts []string
	label ai.Categorization
	err   error
}

func (f *fakeCategorizer) CategorizeEmail(_ context.Context, text string) (*ai.Categorization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	c := f.label
	return &c, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	docs    []chroma.Document
	removed []string
	err     error
}

func (f *fakeIndex) Upsert(_ context.Context, d chroma.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, d)
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, messageID)
	return nil
}

var errBoom = errors.New("boom")

func quietLogger() zerolog.Logger {
	return zerolog.Nop()
}
