package usecase

import (
	"context"

	inboxdomain "homeops-backend/internal/inbox/domain"
	"homeops-backend/internal/task/domain"
	"homeops-backend/pkg/ai"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	// CreateTask creates a new task manually
	CreateTask(userID string, req CreateTaskRequest) (*domain.Task, error)

	// GetTaskByID retrieves a task by ID (with ownership check)
	GetTaskByID(userID, taskID string) (*domain.Task, error)

	// GetUserTasks retrieves all tasks for a user with optional status filter
	GetUserTasks(userID string, status *string, limit, offset int) ([]*domain.Task, int64, error)

	UpdateTask(userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error)

	DeleteTask(userID, taskID string) error

	// ExtractTasksFromEmail uses the text generation service to turn a stored
	// email into tasks. Extracting the same email twice returns the first result.
	ExtractTasksFromEmail(ctx context.Context, userID, emailID string) ([]*domain.Task, error)

	// CountByStatus counts the user's tasks per status
	CountByStatus(userID string) (map[domain.TaskStatus]int64, error)
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
}

// TaskUpdateRequest represents the fields that can be updated
type TaskUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// EmailFetcher loads a stored, scored email
type EmailFetcher interface {
	GetEmail(ctx context.Context, userID, messageID string) (*inboxdomain.ScoredEmail, error)
}

// TaskExtractor is the part of the text generation service tasks need
type TaskExtractor interface {
	ExtractTasksFromEmail(ctx context.Context, emailText string) ([]ai.TaskExtraction, error)
}
