package domain

import (
	"time"

	"golang.org/x/oauth2"

	"homeops-backend/pkg/scoring"
)

// Mail sources an Email can come from.
const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc func(token *oauth2.Token) error

// Email is a message as fetched from the user's mailbox, before scoring.
type Email struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name,omitempty"`
	Category   string    `json:"category,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Source     string    `json:"source"`
}

// Record is the scorer's view of the email.
func (e *Email) Record() scoring.EmailRecord {
	return scoring.EmailRecord{
		Subject:  e.Subject,
		Snippet:  e.Snippet,
		Sender:   e.Sender,
		Category: e.Category,
		Priority: e.Priority,
	}
}

// Text is the plain text handed to the text-generation service.
func (e *Email) Text() string {
	return "From: " + e.Sender + "\nSubject: " + e.Subject + "\n\n" + e.Snippet
}
