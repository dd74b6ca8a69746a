package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"nori-assistant/internal/infrastructure/config"
	"nori-assistant/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Message 消息結構
type Message struct {
	Role       common.Role `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
}

// ToolCall 模型發起的工具呼叫
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall 工具呼叫內容，Arguments 為 JSON 字串
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition 工具定義（JSON-Schema 參數）
type ToolDefinition struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// FunctionSchema 工具函式結構
type FunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request 表示 chat completions API 請求
type Request struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  string           `json:"tool_choice,omitempty"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

// Response chat completions 響應結構
type Response struct {
	ID      string    `json:"id"`
	Choices []Choice  `json:"choices"`
	Usage   UsageInfo `json:"usage"`
}

// Choice 選擇結構
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// UsageInfo 使用量信息
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// apiError API 錯誤響應
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ToolExecutor 工具執行介面
// 由 chat 層的 Dispatcher 實作；client 本身不解析工具語意
type ToolExecutor interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args json.RawMessage, userID string) any
}

// Client 模型端點客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建模型客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.OpenAI.BaseURL).
		SetTimeout(cfg.OpenAI.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenAI.APIKey))

	return &Client{
		config: cfg,
		client: client,
	}
}

// IsConfigured 檢查是否已設定 API Key
func (c *Client) IsConfigured() bool {
	return c.config.OpenAI.APIKey != ""
}

// Complete 發送單次 chat completions 請求
// 失敗（網路錯誤或非 2xx）對當前回合是致命錯誤，不重試
func (c *Client) Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error) {
	// 缺少 API Key 時在任何網路呼叫前 fail fast
	if !c.IsConfigured() {
		return nil, common.ErrAINotConfigured
	}

	req := &Request{
		Model:       c.config.OpenAI.Model,
		Messages:    messages,
		Temperature: c.config.OpenAI.Temperature,
		MaxTokens:   c.config.OpenAI.MaxTokens,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")

	if err != nil {
		common.LogAICall(req.Model, time.Since(start), err, "")
		return nil, fmt.Errorf("failed to send request to model endpoint: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		var apiErr apiError
		msg := resp.String()
		if jsonErr := json.Unmarshal(resp.Body(), &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		common.LogError("模型端點回傳錯誤狀態",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", req.Model),
			zap.String("response", msg),
		)
		return nil, common.NewError(common.ErrAIServiceError.Code,
			fmt.Sprintf("model endpoint error (status %d): %s", resp.StatusCode(), msg),
			http.StatusServiceUnavailable, nil)
	}

	// 解析響應
	var result Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("empty choices in model response")
	}

	common.LogAICall(req.Model, time.Since(start), nil, result.ID)

	return &result.Choices[0].Message, nil
}

// CompleteWithTools 執行至多一次工具往返的完整回合
// 第一次請求附帶工具定義；若模型發起工具呼叫，交由 executor 執行，
// 並把助手訊息與 tool 結果附加後發出第二次請求（不再附工具，避免遞迴串接）
func (c *Client) CompleteWithTools(ctx context.Context, messages []Message, executor ToolExecutor, userID string) (string, []common.ToolCallRecord, error) {
	var tools []ToolDefinition
	if executor != nil {
		tools = executor.Definitions()
	}

	assistant, err := c.Complete(ctx, messages, tools)
	if err != nil {
		return "", nil, err
	}

	if len(assistant.ToolCalls) == 0 || executor == nil {
		return assistant.Content, nil, nil
	}

	// 執行工具呼叫
	records := make([]common.ToolCallRecord, 0, len(assistant.ToolCalls))
	followUp := append(append([]Message{}, messages...), *assistant)
	for _, tc := range assistant.ToolCalls {
		result := executor.Execute(ctx, tc.Function.Name, json.RawMessage(tc.Function.Arguments), userID)
		records = append(records, common.ToolCallRecord{Name: tc.Function.Name, Result: result})

		payload, err := json.Marshal(result)
		if err != nil {
			common.LogWarn("工具結果序列化失敗",
				zap.String("tool", tc.Function.Name),
				zap.Error(err),
			)
			payload = []byte("{}")
		}
		followUp = append(followUp, Message{
			Role:       common.RoleTool,
			ToolCallID: tc.ID,
			Content:    string(payload),
		})
	}

	// 帶工具結果發出第二次請求，取其內容作為最終回覆
	final, err := c.Complete(ctx, followUp, nil)
	if err != nil {
		return "", records, err
	}

	return final.Content, records, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
