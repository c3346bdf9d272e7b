package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// WhisperClient talks to a whisper-compatible STT service.
//
// Expected endpoint: POST {base}/v1/audio/transcriptions (multipart: file,
// optional language) returning {"text": ..., "language": ..., "duration": ...}.
type WhisperClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// WhisperOption configures the client.
type WhisperOption func(*WhisperClient)

// WithWhisperHTTPClient overrides the HTTP client.
func WithWhisperHTTPClient(c *http.Client) WhisperOption {
	return func(w *WhisperClient) { w.client = c }
}

func NewWhisperClient(baseURL, apiKey string, timeout time.Duration, opts ...WhisperOption) *WhisperClient {
	w := &WhisperClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func (w *WhisperClient) Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error) {
	if len(req.Audio) == 0 {
		return Transcription{}, ErrEmptyAudio
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return Transcription{}, fmt.Errorf("speech: build form: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return Transcription{}, fmt.Errorf("speech: write audio: %w", err)
	}
	if req.LanguageHint != "" {
		if err := mw.WriteField("language", req.LanguageHint); err != nil {
			return Transcription{}, fmt.Errorf("speech: write language: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return Transcription{}, fmt.Errorf("speech: close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return Transcription{}, fmt.Errorf("speech: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	if w.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return Transcription{}, fmt.Errorf("speech: transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transcription{}, fmt.Errorf("speech: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Transcription{}, fmt.Errorf("speech: transcription status %d: %s", resp.StatusCode, string(respBody))
	}

	var out whisperResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return Transcription{}, fmt.Errorf("speech: decode response: %w", err)
	}
	return Transcription{
		Text:            strings.TrimSpace(out.Text),
		Language:        out.Language,
		DurationSeconds: out.Duration,
	}, nil
}
