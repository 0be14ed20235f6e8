package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"homeops-backend/internal/task/domain"
	"homeops-backend/internal/task/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo     repository.TaskRepository
	extractor    TaskExtractor
	emailFetcher EmailFetcher
	log          zerolog.Logger
}

// NewTaskUsecase creates a new instance of taskUsecase. A nil extractor
// disables ExtractTasksFromEmail.
func NewTaskUsecase(taskRepo repository.TaskRepository, extractor TaskExtractor, emailFetcher EmailFetcher, log zerolog.Logger) TaskUsecase {
	return &taskUsecase{
		taskRepo:     taskRepo,
		extractor:    extractor,
		emailFetcher: emailFetcher,
		log:          log,
	}
}

func (u *taskUsecase) CreateTask(userID string, req CreateTaskRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrEmptyTitle
	}

	task := &domain.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Priority:    domain.ParsePriority(req.Priority),
		Status:      domain.TaskStatusPending,
		DueDate:     parseTime(req.DueDate),
	}

	if err := u.taskRepo.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *taskUsecase) GetTaskByID(userID, taskID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if task.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

func (u *taskUsecase) GetUserTasks(userID string, status *string, limit, offset int) ([]*domain.Task, int64, error) {
	var statusFilter *domain.TaskStatus
	if status != nil && *status != "" {
		s := domain.TaskStatus(*status)
		if !s.Valid() {
			return nil, 0, domain.ErrInvalidStatus
		}
		statusFilter = &s
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.taskRepo.FindByUserID(userID, statusFilter, limit, offset)
}

func (u *taskUsecase) UpdateTask(userID, taskID string, updates TaskUpdateRequest) (*domain.Task, error) {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return nil, err
	}

	if updates.Title != nil {
		title := strings.TrimSpace(*updates.Title)
		if title == "" {
			return nil, domain.ErrEmptyTitle
		}
		task.Title = title
	}
	if updates.Description != nil {
		task.Description = *updates.Description
	}
	if updates.Priority != nil {
		task.Priority = domain.ParsePriority(*updates.Priority)
	}
	if updates.Status != nil {
		s := domain.TaskStatus(*updates.Status)
		if !s.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		task.Status = s
	}
	if updates.DueDate != nil {
		task.DueDate = parseTime(updates.DueDate)
	}

	if err := u.taskRepo.Update(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (u *taskUsecase) DeleteTask(userID, taskID string) error {
	task, err := u.GetTaskByID(userID, taskID)
	if err != nil {
		return err
	}
	return u.taskRepo.Delete(task.ID)
}

func (u *taskUsecase) CountByStatus(userID string) (map[domain.TaskStatus]int64, error) {
	return u.taskRepo.CountByStatus(userID)
}

func (u *taskUsecase) ExtractTasksFromEmail(ctx context.Context, userID, emailID string) ([]*domain.Task, error) {
	if u.extractor == nil || u.emailFetcher == nil {
		return nil, domain.ErrExtractorMissing
	}

	existing, err := u.taskRepo.FindByEmailID(userID, emailID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	email, err := u.emailFetcher.GetEmail(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}

	emailText := fmt.Sprintf("From: %s\nSubject: %s\n\n%s", email.Sender, email.Subject, email.Snippet)

	log := u.log.With().Str("user_id", userID).Str("email_id", emailID).Logger()
	extractions, err := u.extractor.ExtractTasksFromEmail(ctx, emailText)
	if err != nil {
		return nil, fmt.Errorf("task extraction failed: %w", err)
	}
	log.Debug().Int("count", len(extractions)).Msg("extracted tasks")

	tasks := make([]*domain.Task, 0, len(extractions))
	for _, extraction := range extractions {
		priority := extraction.Priority
		if priority == "" {
			priority = email.Priority
		}
		task := &domain.Task{
			ID:          uuid.New().String(),
			UserID:      userID,
			EmailID:     emailID,
			Title:       extraction.Title,
			Description: extraction.Description,
			DueDate:     extraction.DueDate,
			Priority:    domain.ParsePriority(priority),
			Status:      domain.TaskStatusPending,
			Category:    email.Category,
			MentalLoad:  email.MentalLoadScore,
		}

		if err := u.taskRepo.Create(task); err != nil {
			log.Warn().Err(err).Str("title", task.Title).Msg("failed to create task")
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// parseTime accepts RFC 3339 or a bare date. Empty or unparseable input
// clears the value.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}
