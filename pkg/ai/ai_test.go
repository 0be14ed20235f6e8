package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

func TestParseCategorization(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     Categorization
		wantErr  bool
	}{
		{"plain", `{"category":"School","priority":"High"}`, Categorization{"school", "high"}, false},
		{"fenced with prose", "Sure!\n```json\n{\"category\": \"medical\", \"priority\": \"urgent\"}\n```", Categorization{"medical", "high"}, false},
		{"unknown labels", `{"category":"pets","priority":"whenever"}`, Categorization{"general", "medium"}, false},
		{"garbage", `no idea`, Categorization{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCategorization(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseTasks(t *testing.T) {
	response := "Here you go:\n" + `[
		{"title":"Sign permission slip","due_date":"2024-09-06","priority":"high"},
		{"title":"  ","description":"skipped"},
		{"title":"Pack lunch","due_date":"tomorrow morning","priority":""},
		{"title":"Read newsletter","due_date":"someday"}
	]`

	tasks, err := parseTasks(response, fixedNow)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, "Sign permission slip", tasks[0].Title)
	assert.Equal(t, "high", tasks[0].Priority)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, time.Date(2024, 9, 6, 0, 0, 0, 0, time.UTC), *tasks[0].DueDate)

	assert.Equal(t, "medium", tasks[1].Priority)
	require.NotNil(t, tasks[1].DueDate)
	assert.Equal(t, fixedNow.AddDate(0, 0, 1), *tasks[1].DueDate)

	assert.Nil(t, tasks[2].DueDate)
}

func TestParseTasks_Empty(t *testing.T) {
	tasks, err := parseTasks("[]", fixedNow)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestOllamaService(t *testing.T) {
	var lastReq ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&lastReq))

		reply := "Hello from the model"
		switch lastReq.System {
		case categorizeSystem:
			reply = `{"category":"finance","priority":"low"}`
		case taskSystem:
			reply = `[{"title":"Pay water bill","priority":"medium"}]`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": reply, "done": true})
	}))
	defer srv.Close()

	model := "llama3.2"
	svc := NewOllamaServiceWithGetters(func() string { return srv.URL }, func() string { return model })
	svc.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	cat, err := svc.CategorizeEmail(ctx, "Your water bill is ready")
	require.NoError(t, err)
	assert.Equal(t, &Categorization{Category: "finance", Priority: "low"}, cat)
	assert.Equal(t, "json", lastReq.Format)
	assert.Equal(t, "llama3.2", lastReq.Model)

	model = "mistral"
	tasks, err := svc.ExtractTasksFromEmail(ctx, "Pay the water bill")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Pay water bill", tasks[0].Title)
	assert.Equal(t, "mistral", lastReq.Model)
	assert.Contains(t, lastReq.Prompt, "2024-09-02")

	reply, err := svc.Chat(ctx, "be brief", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello from the model", reply)
	assert.False(t, lastReq.Stream)
}

func TestOllamaService_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaService(srv.URL, "missing").Chat(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.NoError(t, Ping(context.Background(), srv.URL))
	assert.Error(t, Ping(context.Background(), srv.URL+"/nope"))
}

func openAIServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"message":%q,"type":"rate_limit_exceeded"}}`, content)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   DefaultOpenAIModel,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestOpenAIService(t *testing.T) {
	srv := openAIServer(t, http.StatusOK, `{"category":"travel","priority":"high"}`)
	defer srv.Close()

	svc := NewOpenAIService("test-key", "", srv.URL+"/v1")
	cat, err := svc.CategorizeEmail(context.Background(), "Your flight was rescheduled")
	require.NoError(t, err)
	assert.Equal(t, &Categorization{Category: "travel", Priority: "high"}, cat)
}

func TestOpenAIService_RateLimited(t *testing.T) {
	srv := openAIServer(t, http.StatusTooManyRequests, "Rate limit reached")
	defer srv.Close()

	svc := NewOpenAIService("test-key", "", srv.URL+"/v1")
	_, err := svc.Chat(context.Background(), "sys", "hi")
	require.Error(t, err)
	assert.True(t, isQuotaError(err))
}

type fakeService struct {
	name  string
	err   error
	calls int
}

func (f *fakeService) CategorizeEmail(context.Context, string) (*Categorization, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Categorization{Category: f.name, Priority: "low"}, nil
}

func (f *fakeService) ExtractTasksFromEmail(context.Context, string) ([]TaskExtraction, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []TaskExtraction{{Title: f.name}}, nil
}

func (f *fakeService) Chat(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.name, nil
}

func TestFallbackService_Routing(t *testing.T) {
	ctx := context.Background()

	t.Run("categorize prefers local", func(t *testing.T) {
		cloud, local := &fakeService{name: "cloud"}, &fakeService{name: "local"}
		got, err := NewFallbackService(cloud, local).CategorizeEmail(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "local", got.Category)
		assert.Equal(t, 0, cloud.calls)
	})

	t.Run("chat prefers cloud", func(t *testing.T) {
		cloud, local := &fakeService{name: "cloud"}, &fakeService{name: "local"}
		got, err := NewFallbackService(cloud, local).Chat(ctx, "s", "m")
		require.NoError(t, err)
		assert.Equal(t, "cloud", got)
		assert.Equal(t, 0, local.calls)
	})

	t.Run("falls back on connection error", func(t *testing.T) {
		cloud := &fakeService{name: "cloud", err: errors.New("dial tcp: connection refused")}
		local := &fakeService{name: "local"}
		tasks, err := NewFallbackService(cloud, local).ExtractTasksFromEmail(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "local", tasks[0].Title)
	})

	t.Run("both fail", func(t *testing.T) {
		cloud := &fakeService{err: errors.New("bad request")}
		local := &fakeService{err: errors.New("model exploded")}
		_, err := NewFallbackService(cloud, local).Chat(ctx, "s", "m")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model exploded")
		assert.Equal(t, 1, cloud.calls)
	})

	t.Run("retries first when second is unreachable", func(t *testing.T) {
		cloud := &fakeService{err: errors.New("bad request")}
		local := &fakeService{err: errors.New("connection refused")}
		_, err := NewFallbackService(cloud, local).Chat(ctx, "s", "m")
		require.Error(t, err)
		assert.Equal(t, 2, cloud.calls)
	})

	t.Run("no providers", func(t *testing.T) {
		_, err := NewFallbackService(nil, nil).Chat(ctx, "s", "m")
		assert.EqualError(t, err, "no AI provider available for chat")
	})
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, isConnectionError(errors.New("Post http://x: dial tcp 127.0.0.1:11434: connect: connection refused")))
	assert.True(t, isQuotaError(errors.New("error, status code: 429, message: Rate limit")))
	assert.False(t, isConnectionError(nil))
	assert.False(t, isQuotaError(errors.New("invalid json")))
}

func TestNewService(t *testing.T) {
	_, err := NewService(Config{Provider: ProviderOpenAI})
	assert.Error(t, err)

	svc, err := NewService(Config{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.IsType(t, &OllamaService{}, svc)

	svc, err = NewService(Config{Provider: ProviderAuto, OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &FallbackService{}, svc)

	svc, err = NewService(Config{})
	require.NoError(t, err)
	assert.IsType(t, &OllamaService{}, svc)

	_, err = NewService(Config{Provider: "gemini"})
	assert.Error(t, err)
}
