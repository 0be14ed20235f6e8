package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"homeops-backend/pkg/scoring"

	"github.com/gin-gonic/gin"
)

// RuntimeConfig holds runtime-configurable settings
type RuntimeConfig struct {
	OllamaBaseURL string `json:"ollama_base_url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// ScorerSwitch is the part of the inbox usecase that owns the active scorer.
type ScorerSwitch interface {
	Scorer() *scoring.Scorer
	SetThreshold(threshold int) *scoring.Scorer
}

// SettingsHandler serves settings that change without a restart.
type SettingsHandler struct {
	mu      sync.RWMutex
	runtime RuntimeConfig

	scorer ScorerSwitch
	ping   func(ctx context.Context, baseURL string) error
}

// NewSettingsHandler creates the settings handler. The scorer switch is set
// once the inbox usecase exists.
func NewSettingsHandler(ollamaBaseURL, ollamaModel string, ping func(ctx context.Context, baseURL string) error) *SettingsHandler {
	return &SettingsHandler{
		runtime: RuntimeConfig{OllamaBaseURL: ollamaBaseURL, OllamaModel: ollamaModel},
		ping:    ping,
	}
}

// OllamaBaseURL returns the current runtime Ollama base URL
func (h *SettingsHandler) OllamaBaseURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runtime.OllamaBaseURL
}

// OllamaModel returns the current runtime Ollama model
func (h *SettingsHandler) OllamaModel() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runtime.OllamaModel
}

// UpdateOllamaSettingsRequest represents the request body for updating Ollama settings
type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required,url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// GetOllamaSettings returns current Ollama configuration
// GET /api/settings/ollama
func (h *SettingsHandler) GetOllamaSettings(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c.JSON(http.StatusOK, h.runtime)
}

// UpdateOllamaSettings updates Ollama configuration at runtime
// PUT /api/settings/ollama
func (h *SettingsHandler) UpdateOllamaSettings(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.runtime.OllamaBaseURL = req.OllamaBaseURL
	if req.OllamaModel != "" {
		h.runtime.OllamaModel = req.OllamaModel
	}
	current := h.runtime
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"message":         "Ollama settings updated successfully",
		"ollama_base_url": current.OllamaBaseURL,
		"ollama_model":    current.OllamaModel,
	})
}

// TestOllamaConnection tests if the Ollama server is reachable
// POST /api/settings/ollama/test
func (h *SettingsHandler) TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	// An empty body tests the current setting
	_ = c.ShouldBindJSON(&req)
	if req.OllamaBaseURL == "" {
		req.OllamaBaseURL = h.OllamaBaseURL()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.ping(ctx, req.OllamaBaseURL); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": req.OllamaBaseURL,
	})
}

// ScoringSettings is the body of GET and PUT /api/settings/scoring.
type ScoringSettings struct {
	DisplayThreshold *int   `json:"display_threshold" binding:"required,min=0"`
	RuleVersion      string `json:"rule_version,omitempty"`
}

// GetScoringSettings returns the active display threshold
// GET /api/settings/scoring
func (h *SettingsHandler) GetScoringSettings(c *gin.Context) {
	scorer := h.scorer.Scorer()
	threshold := scorer.Threshold()
	c.JSON(http.StatusOK, ScoringSettings{DisplayThreshold: &threshold, RuleVersion: scorer.Rules().Version})
}

// UpdateScoringSettings swaps the active scorer for one with a new threshold.
// Stored verdicts change on the next sync or rescore.
// PUT /api/settings/scoring
func (h *SettingsHandler) UpdateScoringSettings(c *gin.Context) {
	var req ScoringSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scorer := h.scorer.SetThreshold(*req.DisplayThreshold)
	threshold := scorer.Threshold()
	c.JSON(http.StatusOK, ScoringSettings{DisplayThreshold: &threshold, RuleVersion: scorer.Rules().Version})
}

// GetScoringRules returns the active rule tables
// GET /api/settings/scoring/rules
func (h *SettingsHandler) GetScoringRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.scorer.Scorer().Rules())
}
