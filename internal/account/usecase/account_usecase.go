package usecase

import (
	"fmt"

	"homeops-backend/internal/account/domain"
	"homeops-backend/internal/account/repository"

	"github.com/golang-jwt/jwt/v5"
)

// accountUsecase implements AccountUsecase interface
type accountUsecase struct {
	repo      repository.AccountRepository
	jwtSecret []byte
}

// NewAccountUsecase creates a new instance of accountUsecase
func NewAccountUsecase(repo repository.AccountRepository, jwtSecret string) AccountUsecase {
	return &accountUsecase{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// ValidateToken verifies an HS256 access token and loads the account named by
// its subject. The token carries the account id in "sub" (or "user_id").
func (u *accountUsecase) ValidateToken(tokenString string) (*domain.Account, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return u.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrInvalidToken
	}

	accountID, _ := claims.GetSubject()
	if accountID == "" {
		accountID, _ = claims["user_id"].(string)
	}
	if accountID == "" {
		return nil, domain.ErrInvalidToken
	}

	account, err := u.repo.FindByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (u *accountUsecase) GetAccount(id string) (*domain.Account, error) {
	account, err := u.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return account, nil
}

func (u *accountUsecase) ListAccounts() ([]*domain.Account, error) {
	return u.repo.ListAll()
}

func (u *accountUsecase) UpdateTokens(id, accessToken, refreshToken string) error {
	if err := u.repo.UpdateTokens(id, accessToken, refreshToken); err != nil {
		return fmt.Errorf("failed to store refreshed token: %w", err)
	}
	return nil
}
