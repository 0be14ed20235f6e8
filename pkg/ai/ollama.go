package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaService implements Service using an Ollama local LLM
type OllamaService struct {
	getBaseURL func() string // Dynamic getter for BaseURL
	getModel   func() string // Dynamic getter for Model
	httpClient *http.Client
	now        func() time.Time
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return NewOllamaServiceWithGetters(
		func() string { return baseURL },
		func() string { return model },
	)
}

// NewOllamaServiceWithGetters creates an Ollama service whose endpoint and model
// can change at runtime through the settings API.
func NewOllamaServiceWithGetters(getBaseURL, getModel func() string) *OllamaService {
	return &OllamaService{
		getBaseURL: getBaseURL,
		getModel:   getModel,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		now:        time.Now,
	}
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

// generate calls /api/generate and returns the raw response text.
func (o *OllamaService) generate(ctx context.Context, req ollamaRequest) (string, error) {
	req.Model = o.getModel()
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.getBaseURL()+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
		Done     bool   `json:"done"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return result.Response, nil
}

func (o *OllamaService) CategorizeEmail(ctx context.Context, emailText string) (*Categorization, error) {
	text, err := o.generate(ctx, ollamaRequest{
		System:  categorizeSystem,
		Prompt:  categorizePrompt(emailText),
		Format:  "json",
		Options: ollamaOptions{Temperature: 0.1, NumPredict: 60},
	})
	if err != nil {
		return nil, err
	}
	return parseCategorization(text)
}

func (o *OllamaService) ExtractTasksFromEmail(ctx context.Context, emailText string) ([]TaskExtraction, error) {
	text, err := o.generate(ctx, ollamaRequest{
		System:  taskSystem,
		Prompt:  taskPrompt(o.now(), emailText),
		Options: ollamaOptions{Temperature: 0.2, NumPredict: 500},
	})
	if err != nil {
		return nil, err
	}
	return parseTasks(text, o.now())
}

func (o *OllamaService) Chat(ctx context.Context, systemPrompt, message string) (string, error) {
	return o.generate(ctx, ollamaRequest{
		System:  systemPrompt,
		Prompt:  message,
		Options: ollamaOptions{Temperature: 0.5},
	})
}

// Ping checks that the server answers on /api/tags.
func Ping(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama responded with status %d", resp.StatusCode)
	}
	return nil
}
