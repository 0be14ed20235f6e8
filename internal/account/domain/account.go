package domain

import (
	"errors"
	"time"
)

// Mail providers an account can be connected through.
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
)

var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrAccountNotFound = errors.New("account not found")
)

// Account holds the credentials the mail sources need. Credentials are issued
// and refreshed elsewhere; this service only reads and rotates them.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"` // "gmail" or "imap"
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	IMAPHost     string    `json:"imap_host,omitempty"`
	IMAPUsername string    `json:"imap_username,omitempty"`
	IMAPPassword string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasGmail reports whether the account can be read through the Gmail API.
func (a *Account) HasGmail() bool {
	return a.Provider == ProviderGmail && (a.AccessToken != "" || a.RefreshToken != "")
}

// HasIMAP reports whether the account can be read over IMAP.
func (a *Account) HasIMAP() bool {
	return a.Provider == ProviderIMAP && a.IMAPHost != "" && a.IMAPUsername != ""
}
