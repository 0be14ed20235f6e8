package repository

import (
	"context"
	"fmt"

	"homeops-backend/internal/inbox/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection  = "users"
	scoredCollection = "scored_emails"
	syncCollection   = "inbox_sync"
)

// firestoreScoreRepository stores verdicts under users/{uid}/scored_emails.
// Filtering and ordering happen in memory so no composite index is needed.
type firestoreScoreRepository struct {
	client *firestore.Client
}

// NewFirestoreScoreRepository creates a Firestore backed ScoreRepository
func NewFirestoreScoreRepository(client *firestore.Client) ScoreRepository {
	return &firestoreScoreRepository{client: client}
}

func (r *firestoreScoreRepository) collection(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(scoredCollection)
}

func (r *firestoreScoreRepository) Upsert(ctx context.Context, emails ...*domain.ScoredEmail) error {
	if len(emails) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(emails))
	for _, e := range emails {
		if e.ID == "" {
			e.ID = domain.ScoredEmailID(e.UserID, e.MessageID)
		}
		job, err := bw.Set(r.collection(e.UserID).Doc(e.MessageID), e)
		if err != nil {
			bw.End()
			return fmt.Errorf("failed to queue %s: %w", e.MessageID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("failed to write %s: %w", emails[i].MessageID, err)
		}
	}
	return nil
}

func (r *firestoreScoreRepository) Get(ctx context.Context, userID, messageID string) (*domain.ScoredEmail, error) {
	snap, err := r.collection(userID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var email domain.ScoredEmail
	if err := snap.DataTo(&email); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", messageID, err)
	}
	return &email, nil
}

func (r *firestoreScoreRepository) all(ctx context.Context, userID string) ([]*domain.ScoredEmail, error) {
	snaps, err := r.collection(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	emails := make([]*domain.ScoredEmail, 0, len(snaps))
	for _, snap := range snaps {
		var email domain.ScoredEmail
		if err := snap.DataTo(&email); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.ID, err)
		}
		emails = append(emails, &email)
	}
	return emails, nil
}

func (r *firestoreScoreRepository) List(ctx context.Context, userID string, filter ListFilter) ([]*domain.ScoredEmail, error) {
	emails, err := r.all(ctx, userID)
	if err != nil {
		return nil, err
	}

	if filter.DisplayOnly {
		kept := emails[:0]
		for _, e := range emails {
			if e.ShouldDisplay {
				kept = append(kept, e)
			}
		}
		emails = kept
	}
	sortFeed(emails)
	return page(emails, filter), nil
}

func (r *firestoreScoreRepository) ListAll(ctx context.Context, userID string) ([]*domain.ScoredEmail, error) {
	emails, err := r.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewest(emails)
	return emails, nil
}

func (r *firestoreScoreRepository) Count(ctx context.Context, userID string, displayOnly bool) (int64, error) {
	emails, err := r.all(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !displayOnly {
		return int64(len(emails)), nil
	}
	var n int64
	for _, e := range emails {
		if e.ShouldDisplay {
			n++
		}
	}
	return n, nil
}

type firestoreSyncStateRepository struct {
	client *firestore.Client
}

// NewFirestoreSyncStateRepository creates a Firestore backed SyncStateRepository
func NewFirestoreSyncStateRepository(client *firestore.Client) SyncStateRepository {
	return &firestoreSyncStateRepository{client: client}
}

func (r *firestoreSyncStateRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(syncCollection).Doc("state")
}

func (r *firestoreSyncStateRepository) Get(ctx context.Context, userID string) (*domain.SyncState, error) {
	snap, err := r.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var state domain.SyncState
	if err := snap.DataTo(&state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *firestoreSyncStateRepository) Save(ctx context.Context, state *domain.SyncState) error {
	_, err := r.doc(state.UserID).Set(ctx, state)
	return err
}
