package compliance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPVerifier queries a DND registry service over HTTP.
//
// Expected endpoint: GET {base}/v1/dnd?phone=<E.164> returning
// {"is_dnd": bool, "status": "..."}.
type HTTPVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// VerifierOption configures the HTTP verifier.
type VerifierOption func(*HTTPVerifier)

// WithVerifierHTTPClient overrides the HTTP client used for lookups.
func WithVerifierHTTPClient(c *http.Client) VerifierOption {
	return func(v *HTTPVerifier) { v.client = c }
}

func NewHTTPVerifier(baseURL, apiKey string, timeout time.Duration, opts ...VerifierOption) *HTTPVerifier {
	v := &HTTPVerifier{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *HTTPVerifier) CheckDND(ctx context.Context, phoneNumber string) (DNDStatus, error) {
	u := v.baseURL + "/v1/dnd?phone=" + url.QueryEscape(phoneNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return DNDStatus{}, fmt.Errorf("compliance: build request: %w", err)
	}
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return DNDStatus{}, fmt.Errorf("compliance: dnd lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return DNDStatus{}, fmt.Errorf("compliance: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return DNDStatus{}, fmt.Errorf("compliance: dnd registry status %d: %s", resp.StatusCode, string(body))
	}

	var out DNDStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return DNDStatus{}, fmt.Errorf("compliance: decode response: %w", err)
	}
	return out, nil
}
