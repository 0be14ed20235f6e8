package domain

import "errors"

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrUnavailable  = errors.New("assistant is not configured")
)

// Reply is the assistant's answer and the emails it was given as context.
type Reply struct {
	Answer   string   `json:"answer"`
	EmailIDs []string `json:"email_ids"`
}
