package knowledge

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

const defaultLimit = 5

// HTTPRetriever queries a search service over HTTP.
//
// Expected endpoint: POST {base}/v1/search with
// {"knowledge_base_ids": [...], "query": ..., "top_k": n} returning
// {"passages": [{"text": ..., "source": ..., "score": ...}]}.
type HTTPRetriever struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// RetrieverOption configures the HTTP retriever.
type RetrieverOption func(*HTTPRetriever)

// WithRetrieverHTTPClient overrides the HTTP client.
func WithRetrieverHTTPClient(c *http.Client) RetrieverOption {
	return func(r *HTTPRetriever) { r.client = c }
}

func NewHTTPRetriever(baseURL, apiKey string, timeout time.Duration, opts ...RetrieverOption) *HTTPRetriever {
	r := &HTTPRetriever{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type searchRequest struct {
	KnowledgeBaseIDs []string `json:"knowledge_base_ids"`
	Query            string   `json:"query"`
	TopK             int      `json:"top_k"`
}

type searchResponse struct {
	Passages []Passage `json:"passages"`
}

func (r *HTTPRetriever) Retrieve(ctx context.Context, knowledgeBaseIDs []string, query string, limit int) ([]Passage, error) {
	if len(knowledgeBaseIDs) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	body, err := json.Marshal(searchRequest{
		KnowledgeBaseIDs: knowledgeBaseIDs,
		Query:            query,
		TopK:             limit,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("knowledge: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge: search status %d: %s", resp.StatusCode, string(respBody))
	}

	var out searchResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("knowledge: decode response: %w", err)
	}
	return out.Passages, nil
}
