package domain

import "errors"

var (
	ErrEmailNotFound   = errors.New("email not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrNoMailSource    = errors.New("account has no usable mail source")
	ErrSyncInProgress  = errors.New("sync already queued for this account")
	ErrQueueFull       = errors.New("sync queue is full")
	ErrEmptyQuery      = errors.New("search query is empty")
	ErrPushDisabled    = errors.New("gmail push notifications are not configured")
)
