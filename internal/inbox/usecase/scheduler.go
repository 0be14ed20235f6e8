package usecase

import (
	"errors"
	"sync"
	"time"

	accountdomain "homeops-backend/internal/account/domain"
	"homeops-backend/internal/inbox/domain"

	"github.com/rs/zerolog"
)

// AccountLister lists every account the scheduler should sync.
type AccountLister interface {
	ListAccounts() ([]*accountdomain.Account, error)
}

type Enqueuer interface {
	Enqueue(userID string) error
}

// SyncScheduler periodically queues a sync for every account
type SyncScheduler struct {
	accounts AccountLister
	queue    Enqueuer
	interval time.Duration
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewSyncScheduler creates a new scheduler
func NewSyncScheduler(accounts AccountLister, queue Enqueuer, interval time.Duration, log zerolog.Logger) *SyncScheduler {
	return &SyncScheduler{
		accounts: accounts,
		queue:    queue,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the scheduler loop. A non-positive interval disables it.
func (s *SyncScheduler) Start() {
	if s.interval <= 0 {
		s.log.Info().Msg("periodic sync disabled")
		return
	}

	s.log.Info().Dur("interval", s.interval).Msg("starting sync scheduler")

	go func() {
		// Run immediately on start
		s.enqueueAll()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.enqueueAll()
			case <-s.stopChan:
				s.log.Info().Msg("sync scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// enqueueAll returns how many accounts were queued.
func (s *SyncScheduler) enqueueAll() int {
	accounts, err := s.accounts.ListAccounts()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list accounts")
		return 0
	}

	queued := 0
	for _, a := range accounts {
		if !a.HasGmail() && !a.HasIMAP() {
			continue
		}
		err := s.queue.Enqueue(a.ID)
		switch {
		case err == nil:
			queued++
		case errors.Is(err, domain.ErrSyncInProgress):
			// already queued by a push notification
		default:
			s.log.Warn().Err(err).Str("user_id", a.ID).Msg("failed to queue sync")
		}
	}
	if queued > 0 {
		s.log.Debug().Int("queued", queued).Msg("queued periodic syncs")
	}
	return queued
}
