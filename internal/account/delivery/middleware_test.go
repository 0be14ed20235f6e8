package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"homeops-backend/internal/account/domain"
)

type stubUsecase struct{}

func (stubUsecase) ValidateToken(token string) (*domain.Account, error) {
	if token == "good" {
		return &domain.Account{ID: "acc-1"}, nil
	}
	return nil, domain.ErrInvalidToken
}

func (stubUsecase) GetAccount(string) (*domain.Account, error) { return nil, nil }
func (stubUsecase) ListAccounts() ([]*domain.Account, error)   { return nil, nil }
func (stubUsecase) UpdateTokens(string, string, string) error  { return nil }

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(stubUsecase{}), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer good", http.StatusOK, "acc-1"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", "Bearer bad", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
