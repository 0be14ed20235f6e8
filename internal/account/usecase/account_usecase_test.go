package usecase

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeops-backend/internal/account/domain"
)

const testSecret = "test-secret"

type fakeRepo struct {
	accounts map[string]*domain.Account
	tokens   map[string][2]string
}

func newFakeRepo(accounts ...*domain.Account) *fakeRepo {
	r := &fakeRepo{accounts: map[string]*domain.Account{}, tokens: map[string][2]string{}}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *fakeRepo) FindByID(id string) (*domain.Account, error) { return r.accounts[id], nil }

func (r *fakeRepo) FindByEmail(email string) (*domain.Account, error) {
	for _, a := range r.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListAll() ([]*domain.Account, error) {
	out := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeRepo) UpdateTokens(id, access, refresh string) error {
	r.tokens[id] = [2]string{access, refresh}
	return nil
}

func (r *fakeRepo) Upsert(a *domain.Account) error {
	r.accounts[a.ID] = a
	return nil
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestValidateToken(t *testing.T) {
	repo := newFakeRepo(&domain.Account{ID: "acc-1", Email: "parent@example.com", Provider: domain.ProviderGmail})
	uc := NewAccountUsecase(repo, testSecret)
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr error
	}{
		{"sub claim", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "acc-1", "exp": future}), "acc-1", nil},
		{"user_id claim", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"user_id": "acc-1", "exp": future}), "acc-1", nil},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "acc-1", "exp": time.Now().Add(-time.Hour).Unix()}), "", domain.ErrInvalidToken},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "acc-1"}), "", domain.ErrInvalidToken},
		{"wrong algorithm", sign(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "acc-1"}), "", domain.ErrInvalidToken},
		{"no subject", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"exp": future}), "", domain.ErrInvalidToken},
		{"unknown account", sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"sub": "ghost"}), "", domain.ErrAccountNotFound},
		{"garbage", "not-a-jwt", "", domain.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := uc.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, account.ID)
		})
	}
}

func TestGetAccount(t *testing.T) {
	uc := NewAccountUsecase(newFakeRepo(&domain.Account{ID: "acc-1"}), testSecret)

	account, err := uc.GetAccount("acc-1")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)

	_, err = uc.GetAccount("missing")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestUpdateTokens(t *testing.T) {
	repo := newFakeRepo()
	uc := NewAccountUsecase(repo, testSecret)

	require.NoError(t, uc.UpdateTokens("acc-1", "new-access", ""))
	assert.Equal(t, [2]string{"new-access", ""}, repo.tokens["acc-1"])
}

func TestAccountSources(t *testing.T) {
	assert.True(t, (&domain.Account{Provider: domain.ProviderGmail, RefreshToken: "r"}).HasGmail())
	assert.False(t, (&domain.Account{Provider: domain.ProviderGmail}).HasGmail())
	assert.True(t, (&domain.Account{Provider: domain.ProviderIMAP, IMAPHost: "imap.fastmail.com:993", IMAPUsername: "me"}).HasIMAP())
	assert.False(t, (&domain.Account{Provider: domain.ProviderGmail, IMAPHost: "x", IMAPUsername: "y"}).HasIMAP())
}
