package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CoquiClient talks to a Coqui-style TTS service.
//
// Expected endpoint: POST {base}/api/tts with a JSON body returning
// {"audio_base64": ..., "audio_url": ..., "duration": ...}.
type CoquiClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// CoquiOption configures the client.
type CoquiOption func(*CoquiClient)

// WithCoquiHTTPClient overrides the HTTP client.
func WithCoquiHTTPClient(c *http.Client) CoquiOption {
	return func(t *CoquiClient) { t.client = c }
}

func NewCoquiClient(baseURL, apiKey string, timeout time.Duration, opts ...CoquiOption) *CoquiClient {
	t := &CoquiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type coquiRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	VoiceID  string `json:"voice_id,omitempty"`
	Tone     string `json:"tone,omitempty"`
}

type coquiResponse struct {
	AudioBase64 string  `json:"audio_base64"`
	AudioURL    string  `json:"audio_url"`
	Duration    float64 `json:"duration"`
}

func (t *CoquiClient) Synthesize(ctx context.Context, req SynthesisRequest) (Synthesis, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Synthesis{}, errors.New("speech: empty synthesis text")
	}

	body, err := json.Marshal(coquiRequest{
		Text:     req.Text,
		Language: req.Language,
		VoiceID:  req.VoiceID,
		Tone:     req.Tone,
	})
	if err != nil {
		return Synthesis{}, fmt.Errorf("speech: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/tts", bytes.NewReader(body))
	if err != nil {
		return Synthesis{}, fmt.Errorf("speech: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Synthesis{}, fmt.Errorf("speech: synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Synthesis{}, fmt.Errorf("speech: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Synthesis{}, fmt.Errorf("speech: synthesis status %d: %s", resp.StatusCode, string(respBody))
	}

	var out coquiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Synthesis{}, fmt.Errorf("speech: decode response: %w", err)
	}

	var audio []byte
	if out.AudioBase64 != "" {
		audio, err = base64.StdEncoding.DecodeString(out.AudioBase64)
		if err != nil {
			return Synthesis{}, fmt.Errorf("speech: decode audio: %w", err)
		}
	}
	return Synthesis{
		Audio:           audio,
		AudioRef:        out.AudioURL,
		DurationSeconds: out.Duration,
	}, nil
}
