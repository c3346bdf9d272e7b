// Package speech wraps the transcription (STT) and synthesis (TTS) providers
// behind small interfaces so the orchestrator never talks HTTP directly.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrEmptyAudio is returned when a transcription request carries no audio.
	ErrEmptyAudio = errors.New("speech: empty audio payload")
)

// TranscriptionRequest carries one customer utterance to the STT provider.
type TranscriptionRequest struct {
	// Audio is the raw audio payload (container format negotiated out of band;
	// WAV/PCM by default).
	Audio []byte

	// LanguageHint biases recognition toward the agent's configured language.
	// Empty means autodetect.
	LanguageHint string
}

// Transcription is the STT provider's answer.
type Transcription struct {
	Text string `json:"text"`

	// Language is the detected language tag, which may differ from the hint.
	Language string `json:"language,omitempty"`

	// DurationSeconds is the provider-measured audio length, used for cost.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Transcriber converts customer audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error)
}

// SynthesisRequest carries one agent reply to the TTS provider.
type SynthesisRequest struct {
	Text     string
	Language string

	// VoiceID and Tone select the synthesis voice; empty means provider default.
	VoiceID string
	Tone    string
}

// Synthesis is the TTS provider's answer.
type Synthesis struct {
	// Audio is the synthesized payload.
	Audio []byte

	// AudioRef optionally points at a provider-hosted artifact instead of
	// (or in addition to) inline audio.
	AudioRef string

	DurationSeconds float64
}

// Synthesizer converts agent reply text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (Synthesis, error)
}
