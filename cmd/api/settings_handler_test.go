package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeops-backend/pkg/scoring"
)

type scorerHolder struct {
	scorer *scoring.Scorer
}

func (s *scorerHolder) Scorer() *scoring.Scorer { return s.scorer }

func (s *scorerHolder) SetThreshold(n int) *scoring.Scorer {
	s.scorer = s.scorer.WithThreshold(n)
	return s.scorer
}

func settingsRouter(h *SettingsHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	s := r.Group("/api/settings")
	s.GET("/scoring", h.GetScoringSettings)
	s.PUT("/scoring", h.UpdateScoringSettings)
	s.GET("/scoring/rules", h.GetScoringRules)
	s.GET("/ollama", h.GetOllamaSettings)
	s.PUT("/ollama", h.UpdateOllamaSettings)
	s.POST("/ollama/test", h.TestOllamaConnection)
	return r
}

func send(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newSettings(ping func(context.Context, string) error) (*SettingsHandler, *scorerHolder) {
	holder := &scorerHolder{scorer: scoring.Default()}
	h := NewSettingsHandler("http://localhost:11434", "llama3.2", ping)
	h.scorer = holder
	return h, holder
}

func TestScoringSettings(t *testing.T) {
	h, holder := newSettings(nil)
	r := settingsRouter(h)

	w := send(r, http.MethodGet, "/api/settings/scoring", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"display_threshold":6,"rule_version":"`+scoring.RuleVersion+`"}`, w.Body.String())

	w = send(r, http.MethodPut, "/api/settings/scoring", `{"display_threshold":9}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 9, holder.scorer.Threshold())

	w = send(r, http.MethodPut, "/api/settings/scoring", `{"display_threshold":0}`)
	require.Equal(t, http.StatusOK, w.Code, "zero shows everything")
	assert.Equal(t, 0, holder.scorer.Threshold())

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPut, "/api/settings/scoring", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPut, "/api/settings/scoring", `{"display_threshold":-1}`).Code)
}

func TestScoringRules(t *testing.T) {
	h, _ := newSettings(nil)
	w := send(settingsRouter(h), http.MethodGet, "/api/settings/scoring/rules", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rules scoring.RuleSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	assert.Equal(t, scoring.RuleVersion, rules.Version)
	assert.NotEmpty(t, rules.Bonuses)
}

func TestOllamaSettings(t *testing.T) {
	var pinged string
	h, _ := newSettings(func(_ context.Context, url string) error {
		pinged = url
		if strings.Contains(url, "down") {
			return errors.New("connection refused")
		}
		return nil
	})
	r := settingsRouter(h)

	w := send(r, http.MethodPut, "/api/settings/ollama", `{"ollama_base_url":"http://gpu-box:11434"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://gpu-box:11434", h.OllamaBaseURL())
	assert.Equal(t, "llama3.2", h.OllamaModel(), "model is kept when omitted")

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPut, "/api/settings/ollama", `{"ollama_base_url":"not a url"}`).Code)

	w = send(r, http.MethodGet, "/api/settings/ollama", "")
	assert.JSONEq(t, `{"ollama_base_url":"http://gpu-box:11434","ollama_model":"llama3.2"}`, w.Body.String())

	w = send(r, http.MethodPost, "/api/settings/ollama/test", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://gpu-box:11434", pinged)

	w = send(r, http.MethodPost, "/api/settings/ollama/test", `{"ollama_base_url":"http://down:11434"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
