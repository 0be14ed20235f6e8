package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/sony/gobreaker"
)

// FallbackService implements smart AI provider routing with fallback
// - Categorization: Ollama first (local, free, runs per email), fallback to OpenAI
// - Task extraction and chat: OpenAI first (better quality), fallback to Ollama
type FallbackService struct {
	cloud Service
	local Service
}

// NewFallbackService creates a new fallback service. Either provider may be nil.
func NewFallbackService(cloud, local Service) *FallbackService {
	return &FallbackService{cloud: cloud, local: local}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// route tries first then second. When second fails with a transient error and first
// failed with something else, first is retried once.
func route[T any](op string, first, second Service, firstName, secondName string, call func(Service) (T, error)) (T, error) {
	var zero T
	var firstErr error

	if first != nil {
		result, err := call(first)
		if err == nil {
			return result, nil
		}
		firstErr = err
		switch {
		case isConnectionError(err):
			log.Printf("[AI] %s connection failed for %s: %v, falling back to %s", firstName, op, err, secondName)
		case isQuotaError(err):
			log.Printf("[AI] %s quota exhausted for %s: %v, falling back to %s", firstName, op, err, secondName)
		default:
			log.Printf("[AI] %s error for %s: %v, falling back to %s", firstName, op, err, secondName)
		}
	}

	if second != nil {
		result, err := call(second)
		if err == nil {
			return result, nil
		}
		if first != nil && (isConnectionError(err) || isQuotaError(err)) && !isConnectionError(firstErr) {
			log.Printf("[AI] %s unavailable for %s: %v, retrying %s", secondName, op, err, firstName)
			return call(first)
		}
		return zero, fmt.Errorf("%s %s failed: %w", secondName, op, err)
	}

	if firstErr != nil {
		return zero, fmt.Errorf("%s %s failed: %w", firstName, op, firstErr)
	}
	return zero, fmt.Errorf("no AI provider available for %s", op)
}

func (f *FallbackService) CategorizeEmail(ctx context.Context, emailText string) (*Categorization, error) {
	return route("categorization", f.local, f.cloud, "Ollama", "OpenAI", func(s Service) (*Categorization, error) {
		return s.CategorizeEmail(ctx, emailText)
	})
}

func (f *FallbackService) ExtractTasksFromEmail(ctx context.Context, emailText string) ([]TaskExtraction, error) {
	return route("task extraction", f.cloud, f.local, "OpenAI", "Ollama", func(s Service) ([]TaskExtraction, error) {
		return s.ExtractTasksFromEmail(ctx, emailText)
	})
}

func (f *FallbackService) Chat(ctx context.Context, systemPrompt, message string) (string, error) {
	return route("chat", f.cloud, f.local, "OpenAI", "Ollama", func(s Service) (string, error) {
		return s.Chat(ctx, systemPrompt, message)
	})
}
