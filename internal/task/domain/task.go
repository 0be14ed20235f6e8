package domain

import (
	"errors"
	"time"
)

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrForbidden        = errors.New("task belongs to another user")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrEmptyTitle       = errors.New("task title is required")
	ErrExtractorMissing = errors.New("text generation service not configured")
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// Task represents a to-do item extracted from email or created manually
type Task struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"index;not null"`
	EmailID     string     `json:"email_id,omitempty" gorm:"index"` // Optional link to source email
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    Priority   `json:"priority" gorm:"default:medium"`
	Status      TaskStatus `json:"status" gorm:"default:pending"`
	// Category and mental load of the source email, empty for manual tasks
	Category   string    `json:"category,omitempty"`
	MentalLoad int       `json:"mental_load,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ParsePriority maps free text to a Priority, defaulting to medium.
func ParsePriority(p string) Priority {
	switch Priority(p) {
	case PriorityHigh, PriorityLow:
		return Priority(p)
	default:
		return PriorityMedium
	}
}
