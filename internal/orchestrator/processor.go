// Package orchestrator runs the per-turn conversation pipeline:
// transcribe -> retrieve -> generate -> synthesize, with durable transcript
// and cost posting around it.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/knowledge"
	"voiceagent-platform/internal/llm"
	"voiceagent-platform/internal/pricing"
	"voiceagent-platform/internal/speech"
	"voiceagent-platform/pkg/logger"
)

// Budgets are the per-stage time limits. Each stage runs under its own
// deadline so a slow provider cannot consume the whole turn.
type Budgets struct {
	Transcription time.Duration
	Retrieval     time.Duration
	Generation    time.Duration
	Synthesis     time.Duration
}

func (b Budgets) withDefaults() Budgets {
	out := b
	if out.Transcription <= 0 {
		out.Transcription = 8 * time.Second
	}
	if out.Retrieval <= 0 {
		out.Retrieval = 3 * time.Second
	}
	if out.Generation <= 0 {
		out.Generation = 12 * time.Second
	}
	if out.Synthesis <= 0 {
		out.Synthesis = 8 * time.Second
	}
	return out
}

// Warning is a non-fatal degradation surfaced as data alongside the result.
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// TurnInput is one customer utterance submitted for processing.
type TurnInput struct {
	Audio []byte
}

// TurnResult is the outcome of one processed turn.
//
// A result with Warnings is still a success: the reply was produced and both
// transcript rows were persisted. ReplyAudio may be empty when synthesis
// degraded to text-only.
type TurnResult struct {
	CallID     string `json:"call_id"`
	TurnNumber int    `json:"turn_number"`

	CustomerText string `json:"customer_text"`
	ReplyText    string `json:"reply_text"`

	ReplyAudio    []byte `json:"reply_audio,omitempty"`
	ReplyAudioRef string `json:"reply_audio_ref,omitempty"`

	LanguageUsed string `json:"language_used"`

	CostMinor int64  `json:"cost_minor"`
	Currency  string `json:"currency"`

	Warnings []Warning `json:"warnings,omitempty"`
}

// clarificationReply is spoken when transcription yields no usable text.
// The turn still succeeds; the model is not consulted.
const clarificationReply = "I'm sorry, I didn't catch that. Could you please repeat?"

// Processor drives the conversation pipeline for one call at a time.
//
// Concurrency invariant: turns within a call are strictly serialized via the
// locker. A turn arriving while another is in flight fails fast with
// ErrTurnInProgress.
type Processor struct {
	calls       *calls.Service
	agents      agents.Repository
	transcripts calls.TranscriptRepository
	accountant  *calls.Accountant
	rates       *pricing.Service

	stt       speech.Transcriber
	tts       speech.Synthesizer
	generator llm.Generator
	retriever knowledge.Retriever

	locker CallLocker
	audit  *audit.Service

	model   string
	budgets Budgets
	clock   func() time.Time

	// generationBackoff spaces the single generation retry.
	generationBackoff time.Duration
}

type ProcessorDeps struct {
	Calls       *calls.Service
	Agents      agents.Repository
	Transcripts calls.TranscriptRepository
	Accountant  *calls.Accountant
	Rates       *pricing.Service

	Transcriber speech.Transcriber
	Synthesizer speech.Synthesizer
	Generator   llm.Generator
	Retriever   knowledge.Retriever

	Locker CallLocker
	Audit  *audit.Service

	// Model names the generation model for rate lookup.
	Model   string
	Budgets Budgets
}

func NewProcessor(deps ProcessorDeps) *Processor {
	return &Processor{
		calls:             deps.Calls,
		agents:            deps.Agents,
		transcripts:       deps.Transcripts,
		accountant:        deps.Accountant,
		rates:             deps.Rates,
		stt:               deps.Transcriber,
		tts:               deps.Synthesizer,
		generator:         deps.Generator,
		retriever:         deps.Retriever,
		locker:            deps.Locker,
		audit:             deps.Audit,
		model:             deps.Model,
		budgets:           deps.Budgets.withDefaults(),
		clock:             time.Now,
		generationBackoff: 250 * time.Millisecond,
	}
}

// Greet speaks the agent's opening line and records it as turn 0.
// It transitions the call to in_progress. Greeting an already-greeted call
// is idempotent at the ledger (greeting key) but appends no duplicate
// transcript row.
func (p *Processor) Greet(ctx context.Context, workspaceID, callID string) (TurnResult, error) {
	release, err := p.locker.Acquire(ctx, callID)
	if err != nil {
		return TurnResult{}, err
	}
	defer release()

	started := p.clock()

	call, err := p.calls.MarkInProgress(ctx, workspaceID, callID)
	if err != nil {
		return TurnResult{}, err
	}

	history, err := p.transcripts.ListByCall(ctx, workspaceID, callID)
	if err != nil {
		return TurnResult{}, err
	}
	for _, e := range history {
		if e.TurnNumber == 0 {
			// Already greeted; replay the stored line without charging again.
			return TurnResult{
				CallID:       callID,
				TurnNumber:   0,
				ReplyText:    e.Text,
				LanguageUsed: call.LanguageUsed,
			}, nil
		}
	}

	agent, err := p.agents.FindByID(ctx, workspaceID, call.AgentID)
	if err != nil {
		return TurnResult{}, err
	}
	greeting := agent.Greeting
	if greeting == "" {
		greeting = fmt.Sprintf("Hello! This is %s. How can I help you today?", agent.Name)
	}

	result := TurnResult{
		CallID:       callID,
		TurnNumber:   0,
		ReplyText:    greeting,
		LanguageUsed: call.LanguageUsed,
	}

	p.synthesizeReply(ctx, workspaceID, callID, agent, call.LanguageUsed, greeting, &result)

	if err := p.ensureActive(ctx, workspaceID, callID); err != nil {
		return TurnResult{}, err
	}

	now := p.clock()
	// On append failure the call stays in_progress with no turn-0 row; the
	// next Greet synthesizes again and the greeting ledger key absorbs the
	// retry without a double charge.
	if err := p.transcripts.AppendTurn(ctx, calls.TranscriptEntry{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		CallID:      callID,
		TurnNumber:  0,
		Speaker:     calls.SpeakerAgent,
		Text:        greeting,
		AudioRef:    result.ReplyAudioRef,
		CreatedAt:   now,
	}); err != nil {
		return TurnResult{}, err
	}

	p.postTurnCost(ctx, workspaceID, callID, calls.GreetingKey, call.LanguageUsed, int(now.Sub(started).Seconds()), 0, &result)
	return result, nil
}

// ProcessTurn runs one full exchange: the customer's audio in, the agent's
// reply out, with both sides durably recorded and the turn's cost posted.
//
// Failure policy per stage:
// - transcription: one retry, then the turn fails (StageError "transcription")
// - retrieval: best-effort, no retry; failure degrades with a warning
// - generation: one retry with backoff, then the turn fails and nothing is
//   persisted for this turn
// - synthesis: one retry, then text-only degradation with a warning
func (p *Processor) ProcessTurn(ctx context.Context, workspaceID, callID string, in TurnInput) (TurnResult, error) {
	if len(in.Audio) == 0 {
		return TurnResult{}, ErrEmptyUtterance
	}

	release, err := p.locker.Acquire(ctx, callID)
	if err != nil {
		return TurnResult{}, err
	}
	defer release()

	started := p.clock()

	call, err := p.calls.MarkInProgress(ctx, workspaceID, callID)
	if err != nil {
		return TurnResult{}, err
	}

	log := logger.From(ctx).With("call_id", callID, "workspace_id", workspaceID)
	result := TurnResult{CallID: callID, LanguageUsed: call.LanguageUsed}

	// Stage 1: transcription.
	transcription, err := p.transcribe(ctx, call, in.Audio)
	if err != nil {
		return TurnResult{}, &StageError{Stage: "transcription", Err: err}
	}

	if transcription.Language != "" && transcription.Language != call.LanguageUsed {
		if err := p.calls.RecordLanguageUsed(ctx, workspaceID, callID, transcription.Language); err != nil {
			log.Warn("language update failed", "error", err)
		} else {
			result.LanguageUsed = transcription.Language
		}
	}

	history, err := p.transcripts.ListByCall(ctx, workspaceID, callID)
	if err != nil {
		return TurnResult{}, err
	}
	turnNumber := nextTurnNumber(history)
	result.TurnNumber = turnNumber
	result.CustomerText = transcription.Text

	// Empty transcription: skip knowledge and generation, ask to repeat.
	if transcription.Text == "" {
		result.Warnings = append(result.Warnings, Warning{
			Stage:   "transcription",
			Message: "no speech detected; asked the customer to repeat",
		})
		_ = p.audit.LogTurnDegraded(ctx, workspaceID, callID, "transcription", "empty transcription")
		result.ReplyText = clarificationReply
		return p.finishTurn(ctx, workspaceID, callID, call, started, 0, result)
	}

	// Stage 2: knowledge retrieval, best-effort.
	passages := p.retrieve(ctx, workspaceID, callID, call, transcription.Text, &result)

	// Stage 3: generation. Fatal on failure; nothing is persisted.
	messages := buildMessages(call.SystemPrompt, passages, history, transcription.Text)
	generation, err := p.generate(ctx, messages)
	if err != nil {
		_ = p.audit.LogGenerationFailed(ctx, workspaceID, callID, err.Error())
		return TurnResult{}, &StageError{Stage: "generation", Err: err}
	}
	result.ReplyText = generation.Text

	return p.finishTurn(ctx, workspaceID, callID, call, started, generation.Usage.Total(), result)
}

// ensureActive re-checks the call at a stage boundary. Providers can run for
// seconds; a call ended underneath them (customer hangup) takes no further
// durable writes.
func (p *Processor) ensureActive(ctx context.Context, workspaceID, callID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, err := p.calls.Get(ctx, workspaceID, callID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return calls.ErrCallNotActive
	}
	return nil
}

// finishTurn synthesizes the reply, persists the exchange and posts its cost.
func (p *Processor) finishTurn(ctx context.Context, workspaceID, callID string, call calls.VoiceAgentCall, started time.Time, totalTokens int, result TurnResult) (TurnResult, error) {
	agent, err := p.agents.FindByID(ctx, workspaceID, call.AgentID)
	if err != nil {
		return TurnResult{}, err
	}

	// Stage 4: synthesis, degradable.
	p.synthesizeReply(ctx, workspaceID, callID, agent, result.LanguageUsed, result.ReplyText, &result)

	if err := p.ensureActive(ctx, workspaceID, callID); err != nil {
		return TurnResult{}, err
	}

	now := p.clock()
	entries := make([]calls.TranscriptEntry, 0, 2)
	if result.CustomerText != "" {
		entries = append(entries, calls.TranscriptEntry{
			ID:          uuid.NewString(),
			WorkspaceID: workspaceID,
			CallID:      callID,
			TurnNumber:  result.TurnNumber,
			Speaker:     calls.SpeakerCustomer,
			Text:        result.CustomerText,
			CreatedAt:   now,
		})
	}
	entries = append(entries, calls.TranscriptEntry{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		CallID:      callID,
		TurnNumber:  result.TurnNumber,
		Speaker:     calls.SpeakerAgent,
		Text:        result.ReplyText,
		AudioRef:    result.ReplyAudioRef,
		CreatedAt:   now,
	})
	if err := p.transcripts.AppendTurn(ctx, entries...); err != nil {
		return TurnResult{}, err
	}

	p.postTurnCost(ctx, workspaceID, callID, calls.TurnKey(result.TurnNumber), result.LanguageUsed, int(now.Sub(started).Seconds()), totalTokens, &result)
	return result, nil
}

func (p *Processor) transcribe(ctx context.Context, call calls.VoiceAgentCall, audio []byte) (speech.Transcription, error) {
	req := speech.TranscriptionRequest{Audio: audio, LanguageHint: call.Language}

	stageCtx, cancel := context.WithTimeout(ctx, p.budgets.Transcription)
	defer cancel()
	out, err := p.stt.Transcribe(stageCtx, req)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return speech.Transcription{}, err
	}

	retryCtx, cancel := context.WithTimeout(ctx, p.budgets.Transcription)
	defer cancel()
	return p.stt.Transcribe(retryCtx, req)
}

func (p *Processor) retrieve(ctx context.Context, workspaceID, callID string, call calls.VoiceAgentCall, query string, result *TurnResult) []knowledge.Passage {
	if len(call.KnowledgeBaseIDs) == 0 || p.retriever == nil {
		return nil
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.budgets.Retrieval)
	defer cancel()
	passages, err := p.retriever.Retrieve(stageCtx, call.KnowledgeBaseIDs, query, 0)
	if err != nil {
		logger.From(ctx).Warn("knowledge retrieval failed", "call_id", callID, "error", err)
		result.Warnings = append(result.Warnings, Warning{
			Stage:   "knowledge",
			Message: "retrieval unavailable; replying without grounding passages",
		})
		_ = p.audit.LogTurnDegraded(ctx, workspaceID, callID, "knowledge", err.Error())
		return nil
	}
	return passages
}

func (p *Processor) generate(ctx context.Context, messages []llm.Message) (llm.Generation, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.budgets.Generation)
	defer cancel()
	out, err := p.generator.Generate(stageCtx, messages)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return llm.Generation{}, err
	}

	select {
	case <-time.After(p.generationBackoff):
	case <-ctx.Done():
		return llm.Generation{}, ctx.Err()
	}

	retryCtx, cancel := context.WithTimeout(ctx, p.budgets.Generation)
	defer cancel()
	return p.generator.Generate(retryCtx, messages)
}

// synthesizeReply attempts TTS with one retry and degrades to text-only on
// failure. It mutates the result in place and never fails the turn.
func (p *Processor) synthesizeReply(ctx context.Context, workspaceID, callID string, agent agents.VoiceAgent, language, text string, result *TurnResult) {
	if p.tts == nil || text == "" {
		return
	}
	req := speech.SynthesisRequest{
		Text:     text,
		Language: language,
		VoiceID:  agent.VoiceID,
		Tone:     agent.VoiceTone,
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.budgets.Synthesis)
	out, err := p.tts.Synthesize(stageCtx, req)
	cancel()
	if err != nil && ctx.Err() == nil {
		retryCtx, cancel := context.WithTimeout(ctx, p.budgets.Synthesis)
		out, err = p.tts.Synthesize(retryCtx, req)
		cancel()
	}
	if err != nil {
		logger.From(ctx).Warn("synthesis failed, degrading to text-only", "call_id", callID, "error", err)
		result.Warnings = append(result.Warnings, Warning{
			Stage:   "synthesis",
			Message: "audio synthesis unavailable; reply delivered as text only",
		})
		_ = p.audit.LogTurnDegraded(ctx, workspaceID, callID, "synthesis", err.Error())
		return
	}
	result.ReplyAudio = out.Audio
	result.ReplyAudioRef = out.AudioRef
}

// postTurnCost prices the turn and appends it to the cost ledger. Cost
// posting failures degrade the result; the exchange itself already landed.
func (p *Processor) postTurnCost(ctx context.Context, workspaceID, callID, key, language string, elapsedSeconds, totalTokens int, result *TurnResult) {
	if p.rates == nil || p.accountant == nil {
		return
	}
	if elapsedSeconds < 1 {
		elapsedSeconds = 1
	}

	cost, err := p.rates.CalculateTurnCost(ctx, pricing.TurnCostRequest{
		WorkspaceID:    workspaceID,
		Language:       language,
		Model:          p.model,
		ElapsedSeconds: elapsedSeconds,
		TotalTokens:    totalTokens,
	})
	if err != nil {
		logger.From(ctx).Warn("turn pricing failed", "call_id", callID, "error", err)
		result.Warnings = append(result.Warnings, Warning{
			Stage:   "cost",
			Message: "turn could not be priced; cost omitted from ledger",
		})
		_ = p.audit.LogTurnDegraded(ctx, workspaceID, callID, "cost", err.Error())
		return
	}

	breakdown, _ := json.Marshal(map[string]int64{
		"voice_minor": cost.VoiceMinor,
		"model_minor": cost.ModelMinor,
	})
	if _, _, err := p.accountant.RecordTurn(ctx, workspaceID, callID, key, cost.TotalMinor, elapsedSeconds, string(breakdown)); err != nil {
		logger.From(ctx).Warn("cost posting failed", "call_id", callID, "error", err)
		result.Warnings = append(result.Warnings, Warning{
			Stage:   "cost",
			Message: "cost ledger append failed",
		})
		_ = p.audit.LogTurnDegraded(ctx, workspaceID, callID, "cost", err.Error())
		return
	}
	result.CostMinor = cost.TotalMinor
	result.Currency = cost.Currency
}
