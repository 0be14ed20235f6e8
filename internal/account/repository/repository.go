package repository

import "homeops-backend/internal/account/domain"

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	FindByID(id string) (*domain.Account, error)
	FindByEmail(email string) (*domain.Account, error)
	ListAll() ([]*domain.Account, error)
	UpdateTokens(id, accessToken, refreshToken string) error
	Upsert(account *domain.Account) error
}
