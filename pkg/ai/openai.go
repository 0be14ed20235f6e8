package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIService implements Service with the OpenAI chat completion API. Calls go
// through a circuit breaker so a failing provider is skipped quickly.
type OpenAIService struct {
	client *openai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
	now    func() time.Time
}

// NewOpenAIService creates the client. baseURL is optional and points the client
// at a compatible endpoint.
func NewOpenAIService(apiKey, model, baseURL string) *OpenAIService {
	if model == "" {
		model = DefaultOpenAIModel
	}
	conf := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}

	cbSettings := gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 4 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &OpenAIService{
		client: openai.NewClientWithConfig(conf),
		model:  model,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
		now:    time.Now,
	}
}

var errEmptyCompletion = errors.New("openai returned no choices")

func (s *OpenAIService) complete(ctx context.Context, system, user string, temperature float32, maxTokens int, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	out, err := s.cb.Execute(func() (interface{}, error) {
		resp, err := s.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, errEmptyCompletion
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	return out.(string), nil
}

func (s *OpenAIService) CategorizeEmail(ctx context.Context, emailText string) (*Categorization, error) {
	text, err := s.complete(ctx, categorizeSystem, categorizePrompt(emailText), 0.1, 60, true)
	if err != nil {
		return nil, err
	}
	return parseCategorization(text)
}

func (s *OpenAIService) ExtractTasksFromEmail(ctx context.Context, emailText string) ([]TaskExtraction, error) {
	text, err := s.complete(ctx, taskSystem, taskPrompt(s.now(), emailText), 0.2, 600, false)
	if err != nil {
		return nil, err
	}
	return parseTasks(text, s.now())
}

func (s *OpenAIService) Chat(ctx context.Context, systemPrompt, message string) (string, error) {
	return s.complete(ctx, systemPrompt, message, 0.5, 800, false)
}
