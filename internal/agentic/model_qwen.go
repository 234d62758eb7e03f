package agentic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
)

const (
	defaultQwenAPIURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName = "qwen-turbo"
)

// QwenChatModel is an OpenAI-compatible chat client for DashScope's Qwen
// endpoint that satisfies this package's ChatModel interface (eino's
// Generate signature only), adapted from the teacher's
// AliyunQwenChatModel (pkg/agent/model_aliyun_qwen.go) — trimmed to plain
// chat completion since the jd_understanding stage never needs tool
// calling, so BindTools/WithTools/Stream are dropped.
type QwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	httpClient *http.Client
}

func NewQwenChatModel(apiKey, modelName, apiURL string) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("qwen: api key required")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultQwenAPIURL
	}
	return &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{},
	}, nil
}

type openAIChatRequest struct {
	Model    string            `json:"model"`
	Messages []*schema.Message `json:"messages"`
}

type openAIChatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatChoice struct {
	Message openAIChatMessage `json:"message"`
}

type openAIChatResponse struct {
	Choices []openAIChatChoice `json:"choices"`
}

// Generate implements ChatModel.
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	reqBody, err := json.Marshal(openAIChatRequest{Model: q.modelName, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("qwen: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+q.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qwen: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qwen: status %s: %s", resp.Status, string(body))
	}

	var parsed openAIChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("qwen: empty choices in response")
	}

	content := ""
	if parsed.Choices[0].Message.Content != nil {
		content = *parsed.Choices[0].Message.Content
	}
	logger.Debug().Str("model", q.modelName).Int("response_len", len(content)).Msg("qwen: generate complete")

	return &schema.Message{Role: schema.Assistant, Content: content}, nil
}

var _ ChatModel = (*QwenChatModel)(nil)
