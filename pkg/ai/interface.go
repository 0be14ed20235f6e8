package ai

import (
	"context"
	"time"
)

// TaskExtraction represents an extracted task from email (shared type)
type TaskExtraction struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Priority    string     `json:"priority"`
}

// Categorization is the label pair the scorer reads when the mail source has none.
type Categorization struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
}

// Service is the text-generation collaborator. Implement this interface to add
// new AI providers.
type Service interface {
	CategorizeEmail(ctx context.Context, emailText string) (*Categorization, error)
	ExtractTasksFromEmail(ctx context.Context, emailText string) ([]TaskExtraction, error)
	Chat(ctx context.Context, systemPrompt, message string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)

// Categories the categorizer may answer with. They match the mental-load table.
var Categories = []string{
	"medical", "family", "finance", "school", "travel", "education", "home", "work",
	"sports", "shopping", "technology", "food", "entertainment", "general",
}
