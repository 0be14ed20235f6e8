package usecase

import "homeops-backend/internal/account/domain"

// AccountUsecase defines the interface for account business logic
type AccountUsecase interface {
	ValidateToken(token string) (*domain.Account, error)
	GetAccount(id string) (*domain.Account, error)
	ListAccounts() ([]*domain.Account, error)
	UpdateTokens(id, accessToken, refreshToken string) error
}
