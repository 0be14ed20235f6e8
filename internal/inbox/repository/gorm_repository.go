package repository

import (
	"context"
	"errors"

	"homeops-backend/internal/inbox/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatchSize keeps a single INSERT under Postgres' parameter limit.
const upsertBatchSize = 200

type gormScoreRepository struct {
	db *gorm.DB
}

// NewGormScoreRepository creates a Postgres backed ScoreRepository
func NewGormScoreRepository(db *gorm.DB) ScoreRepository {
	return &gormScoreRepository{db: db}
}

func (r *gormScoreRepository) Upsert(ctx context.Context, emails ...*domain.ScoredEmail) error {
	if len(emails) == 0 {
		return nil
	}
	for _, e := range emails {
		if e.ID == "" {
			e.ID = domain.ScoredEmailID(e.UserID, e.MessageID)
		}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		CreateInBatches(emails, upsertBatchSize).Error
}

func (r *gormScoreRepository) Get(ctx context.Context, userID, messageID string) (*domain.ScoredEmail, error) {
	var email domain.ScoredEmail
	err := r.db.WithContext(ctx).Where("user_id = ? AND message_id = ?", userID, messageID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *gormScoreRepository) List(ctx context.Context, userID string, filter ListFilter) ([]*domain.ScoredEmail, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.DisplayOnly {
		query = query.Where("should_display = ?", true)
	}
	query = query.Order("mental_load_score DESC").Order("received_at DESC").Order("message_id ASC")
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var emails []*domain.ScoredEmail
	if err := query.Find(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *gormScoreRepository) ListAll(ctx context.Context, userID string) ([]*domain.ScoredEmail, error) {
	var emails []*domain.ScoredEmail
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("received_at DESC").
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *gormScoreRepository) Count(ctx context.Context, userID string, displayOnly bool) (int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.ScoredEmail{}).Where("user_id = ?", userID)
	if displayOnly {
		query = query.Where("should_display = ?", true)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

type gormSyncStateRepository struct {
	db *gorm.DB
}

// NewGormSyncStateRepository creates a Postgres backed SyncStateRepository
func NewGormSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &gormSyncStateRepository{db: db}
}

func (r *gormSyncStateRepository) Get(ctx context.Context, userID string) (*domain.SyncState, error) {
	var state domain.SyncState
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *gormSyncStateRepository) Save(ctx context.Context, state *domain.SyncState) error {
	return r.db.WithContext(ctx).Save(state).Error
}
