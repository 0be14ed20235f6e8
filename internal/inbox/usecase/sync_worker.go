package usecase

import (
	"context"
	"sync"
	"time"

	"homeops-backend/internal/inbox/domain"

	"github.com/rs/zerolog"
)

const (
	syncQueueSize  = 500
	defaultWorkers = 3
	syncJobTimeout = 2 * time.Minute
)

// Syncer is the part of InboxUsecase the worker drives.
type Syncer interface {
	SyncInbox(ctx context.Context, userID string) (*SyncResult, error)
}

// SyncWorker runs inbox syncs in the background. A user has at most one job
// queued at a time; a request that arrives while the user's job is running
// schedules one follow-up run.
type SyncWorker struct {
	syncer      Syncer
	log         zerolog.Logger
	jobQueue    chan string
	workerCount int
	timeout     time.Duration

	mu       sync.Mutex
	inFlight map[string]bool
	running  map[string]bool
	rerun    map[string]bool
	started  bool
	stopped  bool
	workerWg sync.WaitGroup
	cancel   context.CancelFunc
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(syncer Syncer, workerCount int, log zerolog.Logger) *SyncWorker {
	if workerCount <= 0 {
		workerCount = defaultWorkers
	}
	return &SyncWorker{
		syncer:      syncer,
		log:         log,
		jobQueue:    make(chan string, syncQueueSize),
		workerCount: workerCount,
		timeout:     syncJobTimeout,
		inFlight:    make(map[string]bool),
		running:     make(map[string]bool),
		rerun:       make(map[string]bool),
	}
}

// Start starts the sync workers
func (w *SyncWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.stopped {
		return
	}

	ctx, w.cancel = context.WithCancel(ctx)
	for i := 0; i < w.workerCount; i++ {
		w.workerWg.Add(1)
		go w.worker(ctx, i)
	}
	w.started = true
	w.log.Info().Int("workers", w.workerCount).Msg("sync workers started")
}

// Stop cancels running syncs, drops queued ones and waits for the workers.
func (w *SyncWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.jobQueue)
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.workerWg.Wait()
	w.log.Info().Msg("sync workers stopped")
}

// Enqueue queues a sync for userID without blocking. ErrSyncInProgress means
// a job for the user is queued and has not started yet.
func (w *SyncWorker) Enqueue(userID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return domain.ErrQueueFull
	}
	if w.inFlight[userID] {
		if w.running[userID] && !w.rerun[userID] {
			w.rerun[userID] = true
			return nil
		}
		return domain.ErrSyncInProgress
	}

	select {
	case w.jobQueue <- userID:
		w.inFlight[userID] = true
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Pending reports how many users have a job queued or running.
func (w *SyncWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight)
}

func (w *SyncWorker) worker(ctx context.Context, id int) {
	defer w.workerWg.Done()

	for userID := range w.jobQueue {
		if ctx.Err() != nil {
			w.done(userID)
			continue
		}
		w.process(ctx, userID)
	}
	w.log.Debug().Int("worker", id).Msg("sync worker exited")
}

func (w *SyncWorker) process(ctx context.Context, userID string) {
	defer w.done(userID)

	w.mu.Lock()
	w.running[userID] = true
	w.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	// SyncInbox logs its own outcome
	_, _ = w.syncer.SyncInbox(jobCtx, userID)
}

func (w *SyncWorker) done(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.running, userID)
	if w.rerun[userID] {
		delete(w.rerun, userID)
		if !w.stopped {
			select {
			case w.jobQueue <- userID:
				return
			default:
				w.log.Warn().Str("user_id", userID).Msg("sync queue full, follow-up sync dropped")
			}
		}
	}
	delete(w.inFlight, userID)
}
