package repository

import "homeops-backend/internal/task/domain"

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(task *domain.Task) error
	// FindByID returns nil, nil when the task does not exist
	FindByID(id string) (*domain.Task, error)
	// FindByUserID finds all tasks for a user with an optional status filter
	FindByUserID(userID string, status *domain.TaskStatus, limit, offset int) ([]*domain.Task, int64, error)
	// FindByEmailID finds the tasks already extracted from one email
	FindByEmailID(userID, emailID string) ([]*domain.Task, error)
	// CountByStatus counts the user's tasks per status
	CountByStatus(userID string) (map[domain.TaskStatus]int64, error)
	Update(task *domain.Task) error
	Delete(id string) error
}
