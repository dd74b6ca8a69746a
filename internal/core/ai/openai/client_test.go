package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		OpenAI: config.OpenAIConfig{
			APIKey:      "test-key",
			BaseURL:     baseURL,
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     5 * time.Second,
		},
	}
}

// fakeExecutor 回傳固定 payload 的工具執行器
type fakeExecutor struct {
	calls []string
}

func (f *fakeExecutor) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{Type: "function", Function: FunctionSchema{Name: "get_pantry"}},
	}
}

func (f *fakeExecutor) Execute(_ context.Context, name string, _ json.RawMessage, _ string) any {
	f.calls = append(f.calls, name)
	return map[string]any{"pantry": []map[string]any{{"name": "rice", "category": "grains"}}}
}

func TestCompleteSuccess(t *testing.T) {
	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-1", "choices": [{"message": {"role": "assistant", "content": "hello!"}}]}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	msg, err := client.Complete(context.Background(), []Message{
		{Role: common.RoleSystem, Content: "be brief"},
		{Role: common.RoleUser, Content: "hi"},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "hello!", msg.Content)
	assert.Equal(t, "gpt-4o-mini", captured.Model)
	assert.Len(t, captured.Messages, 2)
	assert.Empty(t, captured.Tools)
	assert.Empty(t, captured.ToolChoice)
}

func TestCompleteSendsToolsWithAutoChoice(t *testing.T) {
	var captured Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	tools := []ToolDefinition{{Type: "function", Function: FunctionSchema{Name: "get_pantry"}}}
	_, err := client.Complete(context.Background(), []Message{{Role: common.RoleUser, Content: "hi"}}, tools)

	require.NoError(t, err)
	assert.Equal(t, "auto", captured.ToolChoice)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "get_pantry", captured.Tools[0].Function.Name)
}

func TestCompleteFailsFastWithoutAPIKey(t *testing.T) {
	requested := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = true
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.OpenAI.APIKey = ""
	client := NewClient(cfg)

	assert.False(t, client.IsConfigured())
	_, err := client.Complete(context.Background(), []Message{{Role: common.RoleUser, Content: "hi"}}, nil)
	assert.ErrorIs(t, err, common.ErrAINotConfigured)
	assert.False(t, requested)
}

func TestCompleteNon2xxIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "rate_limit"}}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: common.RoleUser, Content: "hi"}}, nil)
	require.Error(t, err)

	var customErr *common.CustomError
	require.True(t, errors.As(err, &customErr))
	assert.Equal(t, common.ErrAIServiceError.Code, customErr.Code)
	assert.Contains(t, customErr.Message, "rate limited")
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "chatcmpl-1", "choices": []}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Complete(context.Background(), []Message{{Role: common.RoleUser, Content: "hi"}}, nil)
	assert.Error(t, err)
}

func TestCompleteWithToolsSingleRoundTrip(t *testing.T) {
	var requests []Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		w.Header().Set("Content-Type", "application/json")
		if len(requests) == 1 {
			fmt.Fprint(w, `{"choices": [{"message": {
				"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "get_pantry", "arguments": "{}"}}]
			}}]}`)
			return
		}
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "you have rice"}}]}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	executor := &fakeExecutor{}

	content, records, err := client.CompleteWithTools(context.Background(),
		[]Message{{Role: common.RoleUser, Content: "what do I have?"}}, executor, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "you have rice", content)
	assert.Equal(t, []string{"get_pantry"}, executor.calls)
	require.Len(t, records, 1)
	assert.Equal(t, "get_pantry", records[0].Name)

	require.Len(t, requests, 2)
	// 第二次請求不附工具，避免遞迴串接
	assert.Empty(t, requests[1].Tools)

	// 第二次請求包含助手工具呼叫與 tool 角色結果
	messages := requests[1].Messages
	require.Len(t, messages, 3)
	assert.Equal(t, common.RoleAssistant, messages[1].Role)
	require.Len(t, messages[1].ToolCalls, 1)
	assert.Equal(t, common.RoleTool, messages[2].Role)
	assert.Equal(t, "call_1", messages[2].ToolCallID)
	assert.Contains(t, messages[2].Content, "rice")
}

func TestCompleteWithToolsNoToolCalls(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "plain answer"}}]}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	content, records, err := client.CompleteWithTools(context.Background(),
		[]Message{{Role: common.RoleUser, Content: "hi"}}, &fakeExecutor{}, "user-1")

	require.NoError(t, err)
	assert.Equal(t, "plain answer", content)
	assert.Empty(t, records)
	assert.Equal(t, 1, calls)
}
