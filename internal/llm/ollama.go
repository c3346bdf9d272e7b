package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient talks to an Ollama-compatible chat endpoint.
//
// Expected endpoint: POST {base}/api/chat (non-streaming) returning
// {"message": {"role": "assistant", "content": ...},
//  "prompt_eval_count": n, "eval_count": m}.
type OllamaClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// OllamaOption configures the client.
type OllamaOption func(*OllamaClient)

// WithOllamaHTTPClient overrides the HTTP client.
func WithOllamaHTTPClient(c *http.Client) OllamaOption {
	return func(o *OllamaClient) { o.client = c }
}

func NewOllamaClient(baseURL, apiKey, model string, timeout time.Duration, opts ...OllamaOption) *OllamaClient {
	o := &OllamaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (o *OllamaClient) Generate(ctx context.Context, messages []Message) (Generation, error) {
	if len(messages) == 0 {
		return Generation{}, fmt.Errorf("llm: no messages to send")
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return Generation{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return Generation{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return Generation{}, fmt.Errorf("llm: chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Generation{}, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Generation{}, fmt.Errorf("llm: chat status %d: %s", resp.StatusCode, string(respBody))
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Generation{}, fmt.Errorf("llm: decode response: %w", err)
	}

	text := strings.TrimSpace(out.Message.Content)
	if text == "" {
		return Generation{}, ErrEmptyGeneration
	}
	return Generation{
		Text:  text,
		Model: out.Model,
		Usage: Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
		},
	}, nil
}
