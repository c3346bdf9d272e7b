package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/auth"
	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/compliance"
	"voiceagent-platform/internal/knowledge"
	"voiceagent-platform/internal/llm"
	"voiceagent-platform/internal/orchestrator"
	"voiceagent-platform/internal/pricing"
	"voiceagent-platform/internal/reporting"
	"voiceagent-platform/internal/speech"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	status compliance.DNDStatus
	err    error
}

func (v *stubVerifier) CheckDND(ctx context.Context, phone string) (compliance.DNDStatus, error) {
	return v.status, v.err
}

type okTranscriber struct{}

func (okTranscriber) Transcribe(ctx context.Context, req speech.TranscriptionRequest) (speech.Transcription, error) {
	return speech.Transcription{Text: "hello there", Language: "en"}, nil
}

type okSynthesizer struct{}

func (okSynthesizer) Synthesize(ctx context.Context, req speech.SynthesisRequest) (speech.Synthesis, error) {
	return speech.Synthesis{Audio: []byte("audio")}, nil
}

type okGenerator struct{}

func (okGenerator) Generate(ctx context.Context, messages []llm.Message) (llm.Generation, error) {
	return llm.Generation{Text: "Hi! How can I help?", Usage: llm.Usage{PromptTokens: 10, CompletionTokens: 5}}, nil
}

type okRetriever struct{}

func (okRetriever) Retrieve(ctx context.Context, kbIDs []string, query string, limit int) ([]knowledge.Passage, error) {
	return nil, nil
}

type testEnv struct {
	router   *gin.Engine
	calls    *calls.Service
	verifier *stubVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	agent := agents.VoiceAgent{
		ID:           "agent-1",
		WorkspaceID:  "ws-1",
		Name:         "Asha",
		Language:     "en",
		SystemPrompt: "You are a support agent.",
		Compliance:   agents.ComplianceConfig{CheckDND: true},
		Status:       agents.AgentStatusActive,
	}
	agentRepo := agents.NewMemoryRepo(agent)

	verifier := &stubVerifier{}
	gate := compliance.NewGate(verifier)

	repo := calls.NewMemoryRepo()
	callSvc := calls.NewService(agentRepo, gate, repo, repo, repo, nil, "INR")

	rates := pricing.NewMemoryRateRepo()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rates.PutVoiceRate(pricing.VoiceRate{
		ID: "vr", WorkspaceID: "ws-1", Currency: "INR",
		RatePerMinuteMinor: 300, EffectiveFrom: from, Status: pricing.RateStatusActive,
	})
	rates.PutModelRate(pricing.ModelRate{
		ID: "mr", WorkspaceID: "ws-1", Currency: "INR",
		RatePer1KTokensMinor: 50, EffectiveFrom: from, Status: pricing.RateStatusActive,
	})

	proc := orchestrator.NewProcessor(orchestrator.ProcessorDeps{
		Calls:       callSvc,
		Agents:      agentRepo,
		Transcripts: repo,
		Accountant:  calls.NewAccountant(repo, "INR"),
		Rates:       pricing.NewService(rates),
		Transcriber: okTranscriber{},
		Synthesizer: okSynthesizer{},
		Generator:   okGenerator{},
		Retriever:   okRetriever{},
		Locker:      orchestrator.NewMemoryLocker(),
		Model:       "llama3",
	})

	h := Handlers{
		Calls:     callSvc,
		Processor: proc,
		Reports:   reporting.NewService(repo, nil),
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "user-1", "ws-1", "owner")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	v1 := r.Group("/v1")
	{
		v1.POST("/calls", h.InitiateCall)
		v1.GET("/calls/:call_id", h.GetCall)
		v1.GET("/calls/:call_id/transcript", h.GetTranscript)
		v1.POST("/calls/:call_id/greet", h.Greet)
		v1.POST("/calls/:call_id/turns", h.SubmitTurn)
		v1.POST("/calls/:call_id/end", h.EndCall)
		v1.GET("/reports/calls-summary", h.CallsSummary)
	}

	return &testEnv{router: r, calls: callSvc, verifier: verifier}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func initiateBody() map[string]any {
	return map[string]any{
		"agent_id": "agent-1",
		"customer": map[string]any{"phone_number": "+919876543210", "name": "Ravi"},
	}
}

func TestInitiateCall_Created(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls", initiateBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var call calls.VoiceAgentCall
	if err := json.Unmarshal(w.Body.Bytes(), &call); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if call.Status != calls.CallStatusQueued || call.WorkspaceID != "ws-1" {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestInitiateCall_UnknownAgentIs404(t *testing.T) {
	env := newTestEnv(t)

	body := initiateBody()
	body["agent_id"] = "missing"
	w := env.do(t, http.MethodPost, "/v1/calls", body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestInitiateCall_DNDBlockIs422WithReason(t *testing.T) {
	env := newTestEnv(t)
	env.verifier.status = compliance.DNDStatus{IsDND: true}

	w := env.do(t, http.MethodPost, "/v1/calls", initiateBody())
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["reason"] == "" {
		t.Fatalf("expected human-readable reason, got %s", w.Body.String())
	}
}

func TestInitiateCall_VerifierOutageIs502(t *testing.T) {
	env := newTestEnv(t)
	env.verifier.err = context.DeadlineExceeded

	w := env.do(t, http.MethodPost, "/v1/calls", initiateBody())
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestFullCallFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls", initiateBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate: %d", w.Code)
	}
	var call calls.VoiceAgentCall
	_ = json.Unmarshal(w.Body.Bytes(), &call)

	w = env.do(t, http.MethodPost, "/v1/calls/"+call.ID+"/greet", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("greet: %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/v1/calls/"+call.ID+"/turns", map[string]any{
		"audio_base64": base64.StdEncoding.EncodeToString([]byte("utterance")),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("turn: %d: %s", w.Code, w.Body.String())
	}
	var turn orchestrator.TurnResult
	if err := json.Unmarshal(w.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decode turn: %v", err)
	}
	if turn.TurnNumber != 1 || turn.ReplyText == "" {
		t.Fatalf("unexpected turn result: %+v", turn)
	}

	w = env.do(t, http.MethodGet, "/v1/calls/"+call.ID+"/transcript", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("transcript: %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/v1/calls/"+call.ID+"/end", map[string]any{
		"status": "completed", "reason": "customer_hangup",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("end: %d: %s", w.Code, w.Body.String())
	}
	var ended calls.VoiceAgentCall
	_ = json.Unmarshal(w.Body.Bytes(), &ended)
	if ended.Status != calls.CallStatusCompleted {
		t.Fatalf("expected completed, got %s", ended.Status)
	}

	// A turn after the call ended conflicts.
	w = env.do(t, http.MethodPost, "/v1/calls/"+call.ID+"/turns", map[string]any{
		"audio_base64": base64.StdEncoding.EncodeToString([]byte("more")),
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 after end, got %d", w.Code)
	}
}

func TestSubmitTurn_BadBase64Is400(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls", initiateBody())
	var call calls.VoiceAgentCall
	_ = json.Unmarshal(w.Body.Bytes(), &call)

	w = env.do(t, http.MethodPost, "/v1/calls/"+call.ID+"/turns", map[string]any{
		"audio_base64": "not-base64!!!",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestEndCall_NonTerminalStatusIs400(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/calls", initiateBody())
	var call calls.VoiceAgentCall
	_ = json.Unmarshal(w.Body.Bytes(), &call)

	w = env.do(t, http.MethodPost, "/v1/calls/"+call.ID+"/end", map[string]any{"status": "in_progress"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCallsSummary_QueryValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/reports/calls-summary?from=bogus&to=2026-03-02T00:00:00Z", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad from, got %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/v1/reports/calls-summary?from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary reporting.CallsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.WorkspaceID != "ws-1" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
